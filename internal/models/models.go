package models

// Where an Item row comes from.
const (
	LocationMarket = iota
	LocationInventory
	LocationHistory
)

// Item is one row of a trading-post view. Items are rebuilt on every sync;
// Name and the unlock fields are filled in after the raw listing arrives.
type Item struct {
	ID           int    `json:"id"`
	TypeID       int    `json:"type_id"`
	Rarity       string `json:"rarity"`
	Level        int    `json:"level"`
	BuyPrice     int    `json:"buy_price"`
	SellPrice    int    `json:"sell_price"`
	Quantity     int    `json:"quantity"`
	Name         string `json:"name"`
	Favorite     bool   `json:"favorite"`
	Whitelisted  bool   `json:"whitelisted"`
	Location     int    `json:"location"`
	UnlockType   string `json:"unlock_type,omitempty"`
	UnlockDataID int    `json:"unlock_data_id,omitempty"`
}

// Listing is the raw backend row before metadata is merged in.
type Listing struct {
	ItemID      int    `json:"item_id"`
	TypeID      int    `json:"type_id"`
	Rarity      string `json:"rarity"`
	Level       int    `json:"level"`
	BuyPrice    int    `json:"buy_price"`
	SellPrice   int    `json:"sell_price"`
	Quantity    int    `json:"quantity"`
	Whitelisted bool   `json:"whitelisted"`
}

// Transaction is a single open or historical order.
type Transaction struct {
	ListingID int    `json:"listing_id"`
	ItemID    int    `json:"item_id"`
	Price     int    `json:"price"`
	Quantity  int    `json:"quantity"`
	Created   string `json:"created"`
	Purchased string `json:"purchased,omitempty"`
	Buy       bool   `json:"buy"`
}

// InventorySlot is a host-reported bag slot holding a sellable stack.
type InventorySlot struct {
	Slot     int    `json:"slot"`
	ItemID   int    `json:"item_id"`
	TypeID   int    `json:"type_id"`
	Rarity   string `json:"rarity"`
	Level    int    `json:"level"`
	Count    int    `json:"count"`
	Bound    bool   `json:"bound"`
	Sellable bool   `json:"sellable"`
}

// Bag describes one equipped bag and the slot range it covers.
type Bag struct {
	Index     int `json:"index"`
	ItemID    int `json:"item_id"`
	FirstSlot int `json:"first_slot"`
	Size      int `json:"size"`
}

// Character is the host's active character.
type Character struct {
	Name       string `json:"name"`
	Profession string `json:"profession"`
	Level      int    `json:"level"`
}
