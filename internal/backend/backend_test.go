package backend_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"tradepost/internal/backend"
	"tradepost/internal/host"
	"tradepost/internal/query"
	"tradepost/internal/stub"
	"tradepost/pkg/logger"
	"tradepost/pkg/notify"
)

const protocolPath = "/{game}/TradingPost"

func session() *host.Observable {
	o := host.NewObservable()
	o.Replace(stub.SampleData().Stats)
	return o
}

func newStubClient(t *testing.T) (*stub.Backend, *backend.Client) {
	t.Helper()
	b := stub.NewBackend(stub.SampleData(), logger.Nop())
	server := httptest.NewServer(b)
	t.Cleanup(server.Close)

	c := backend.NewClient(server.URL, protocolPath, backend.NewHTTPTransport(5*time.Second), session(), logger.Nop())
	return b, c
}

type fakeTransport struct {
	resp backend.RawResponse
	err  error
	url  string
}

func (f *fakeTransport) RoundTrip(_ context.Context, url string, _ http.Header, _ []byte) (backend.RawResponse, error) {
	f.url = url
	return f.resp, f.err
}

func TestClassify(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		status int
		body   string
		want   bool
	}{
		{"ok", 200, `{}`, true},
		{"not modified", 304, ``, true},
		{"no content quirk", 1223, ``, true},
		{"bad request without code", 400, `{"error":"empty query"}`, true},
		{"bad request with code", 400, `{"code":12,"product":1,"module":3,"line":88}`, false},
		{"bad request with string code", 400, `{"code":"12"}`, false},
		{"not found", 404, `{}`, false},
		{"server error", 500, `oops`, false},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tt.want, backend.Classify(tt.status, []byte(tt.body)))
		})
	}
}

func TestEnvelopeStampsSession(t *testing.T) {
	t.Parallel()

	c := backend.NewClient("http://backend", protocolPath, &fakeTransport{}, session(), logger.Nop())
	env, err := c.Envelope(backend.CmdSearch, query.Request{Count: 10})
	require.NoError(t, err)

	require.Equal(t, "/gw2/TradingPost/Search", env.Path("gw2"))
	require.Equal(t, stub.SampleData().Stats.SessionID, env.Headers.Get(backend.HeaderSession))
	_, err = uuid.Parse(env.Headers.Get(backend.HeaderRequest))
	require.NoError(t, err)
	require.JSONEq(t, `{"level_min":0,"level_max":0,"sort_field":"","sort_desc":false,"offset":0,"count":10}`, string(env.Body))
}

func TestSendSearch(t *testing.T) {
	t.Parallel()
	b, c := newStubClient(t)

	req := query.Translate(query.Input{Category: "armor", Subcategory: "coat", HostProfession: "Warrior", Count: 50})
	var resp backend.SearchResponse
	require.NoError(t, c.SendInto(context.Background(), backend.CmdSearch, req, &resp))

	require.Equal(t, 1, resp.Total)
	require.Len(t, resp.Items, 1)
	require.Equal(t, 10001, resp.Items[0].ItemID)
	require.False(t, resp.More)
	require.Equal(t, 1, b.Calls(backend.CmdSearch))
	require.Equal(t, []string{stub.SampleData().Stats.SessionID}, b.Sessions())
}

func TestSendProtocolError(t *testing.T) {
	t.Parallel()
	b, c := newStubClient(t)
	b.Fail(backend.CmdSearch, stub.Failure{Status: 503, Body: `{"code":"1001","product":2,"module":17,"line":"340"}`})

	_, err := c.Send(context.Background(), backend.CmdSearch, query.Request{})
	var pe *backend.ProtocolError
	require.ErrorAs(t, err, &pe)
	require.Equal(t, 503, pe.Status)

	d, ok := backend.DescriptorOf(err)
	require.True(t, ok)
	require.Equal(t, backend.Descriptor{Code: "1001", Product: "2", Module: "17", Line: "340"}, d)
	require.True(t, d.Numeric())
}

func TestSendParseError(t *testing.T) {
	t.Parallel()

	tr := &fakeTransport{resp: backend.RawResponse{Status: 200, Body: []byte("<html>")}}
	c := backend.NewClient("http://backend/", protocolPath, tr, session(), logger.Nop())

	_, err := c.Send(context.Background(), backend.CmdSearch, query.Request{})
	var pe *backend.ParseError
	require.ErrorAs(t, err, &pe)
	require.Equal(t, "http://backend/gw2/TradingPost/Search", tr.url)

	_, ok := backend.DescriptorOf(err)
	require.False(t, ok)
}

func TestSendTransportError(t *testing.T) {
	t.Parallel()

	boom := errors.New("connection refused")
	c := backend.NewClient("http://backend", protocolPath, &fakeTransport{err: boom}, session(), logger.Nop())

	_, err := c.Send(context.Background(), backend.CmdSearch, query.Request{})
	var te *backend.TransportError
	require.ErrorAs(t, err, &te)
	require.ErrorIs(t, err, boom)
}

func TestDescriptorNumeric(t *testing.T) {
	t.Parallel()

	require.True(t, backend.Descriptor{Code: "1", Product: "2", Module: "3", Line: "4"}.Numeric())
	require.False(t, backend.Descriptor{Code: "1", Product: "2", Module: "3"}.Numeric())
	require.False(t, backend.Descriptor{Code: "E1", Product: "2", Module: "3", Line: "4"}.Numeric())
}

type recordingNotifier struct {
	messages []string
}

func (r *recordingNotifier) Show(message string, _ notify.NotificationType) error {
	r.messages = append(r.messages, message)
	return nil
}

func startHost(t *testing.T) (*stub.Host, *host.Client) {
	t.Helper()
	dir, err := os.MkdirTemp("", "tp")
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(dir) })

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	path := filepath.Join(dir, "host.sock")
	h := stub.NewHost(path, stub.SampleData(), logger.Nop())
	require.NoError(t, h.Start(ctx))
	return h, host.NewClient(path, logger.Nop())
}

func TestReportNetworkError(t *testing.T) {
	t.Parallel()
	h, c := startHost(t)
	n := &recordingNotifier{}
	r := backend.NewReporter(c, n, logger.Nop())
	ctx := context.Background()

	require.False(t, r.ReportNetworkError(ctx, backend.Descriptor{Code: "1", Product: "2", Module: "x", Line: "4"}))
	require.Empty(t, h.Reports())

	d := backend.Descriptor{Code: "1001", Product: "2", Module: "17", Line: "340"}
	require.True(t, r.ReportNetworkError(ctx, d))
	require.Len(t, h.Reports(), 1)

	var got backend.Descriptor
	require.NoError(t, json.Unmarshal(h.Reports()[0], &got))
	require.Equal(t, d, got)
	require.Empty(t, n.messages)
}

func TestReportFallsBackWhenHostRejects(t *testing.T) {
	t.Parallel()
	h, c := startHost(t)
	h.RejectReports(true)
	n := &recordingNotifier{}
	r := backend.NewReporter(c, n, logger.Nop())

	err := &backend.ProtocolError{Command: backend.CmdSearch, Status: 500, Descriptor: backend.Descriptor{Code: "7", Product: "1", Module: "1", Line: "9"}}
	require.False(t, r.Report(context.Background(), err))
	require.Len(t, h.Reports(), 0)
	require.Len(t, n.messages, 1)
	require.Contains(t, n.messages[0], "7:1:1:9")
}
