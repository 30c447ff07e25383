package notify

import (
	"errors"
	"os/exec"
	"testing"

	"github.com/stretchr/testify/require"

	"tradepost/pkg/logger"
)

func newTestService(command string, available map[string]bool) (*NotifyService, *[]*exec.Cmd) {
	var ran []*exec.Cmd
	n := NewNotifyService(command, logger.Nop())
	n.run = func(cmd *exec.Cmd) error {
		ran = append(ran, cmd)
		if cmd.Args[0] == "sh" && command == "fail" {
			return errors.New("exit status 1")
		}
		return nil
	}
	n.lookPath = func(name string) (string, error) {
		if available[name] {
			return "/usr/bin/" + name, nil
		}
		return "", exec.ErrNotFound
	}
	return n, &ran
}

func TestShowUsesCustomCommandFirst(t *testing.T) {
	t.Parallel()

	n, ran := newTestService("my-notify", map[string]bool{"notify-send": true})
	require.NoError(t, n.Show("backend down", Error))
	require.Len(t, *ran, 1)
	require.Equal(t, []string{"sh", "-c", `my-notify "$0" "$1"`, "ERROR", "backend down"}, (*ran)[0].Args)
}

func TestShowFallsBackToSystemTool(t *testing.T) {
	t.Parallel()

	n, ran := newTestService("fail", map[string]bool{"notify-send": true})
	require.NoError(t, n.Show("hello", Info))
	require.Len(t, *ran, 2)
	require.Equal(t, []string{"/usr/bin/notify-send", "-u", "normal", "Trading Post", "hello"}, (*ran)[1].Args)
}

func TestShowFailsWithoutChannels(t *testing.T) {
	t.Parallel()

	n, ran := newTestService("", nil)
	require.Error(t, n.Show("nobody listens", Error))
	require.Empty(t, *ran)
}
