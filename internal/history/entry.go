package history

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/kitops-ml/kitops-go/internal/canonical"
)

// Entry is one recorded kit invocation.
type Entry struct {
	ID        string        `json:"id"`
	Command   string        `json:"command"`
	Args      []string      `json:"args"`
	ExitCode  int           `json:"exit_code"`
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration_ns"`
	Err       string        `json:"error,omitempty"`
}

// Succeeded reports whether kit ran and exited zero.
func (e Entry) Succeeded() bool {
	return e.ExitCode == 0 && e.Err == ""
}

func newUUID() string {
	return uuid.NewString()
}

func marshalArgs(args []string) (string, error) {
	if args == nil {
		args = []string{}
	}
	data, err := canonical.Marshal(args)
	if err != nil {
		return "", fmt.Errorf("marshal args: %w", err)
	}
	return string(data), nil
}

func unmarshalArgs(data string) ([]string, error) {
	args := []string{}
	if data == "" {
		return args, nil
	}
	if err := json.Unmarshal([]byte(data), &args); err != nil {
		return nil, fmt.Errorf("unmarshal args: %w", err)
	}
	return args, nil
}
