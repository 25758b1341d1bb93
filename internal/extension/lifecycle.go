package extension

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/itnt/extension/internal/dispatcher"
	"github.com/itnt/extension/internal/storage"
	"github.com/itnt/extension/pkg/streaming"
)

// Extension-level commands.
const (
	CmdStatus        = ":STATUS:"
	CmdReload        = ":RELOAD:"
	CmdJournalRecent = ":JOURNAL:RECENT:"
)

const defaultRecentLimit = 20

func (e *Extension) registerLifecycleHandlers() {
	e.disp.Register(CmdStatus, func(dispatcher.Event) (any, error) {
		return e.monitor.Snapshot(), nil
	})

	e.disp.Register(CmdReload, func(dispatcher.Event) (any, error) {
		if err := e.Reload(); err != nil {
			return nil, err
		}
		return "reloaded", nil
	}, dispatcher.Logged())

	if _, ok := e.journal.(storage.Querier); ok {
		e.disp.Register(CmdJournalRecent, e.handleJournalRecent)
	}
}

func (e *Extension) handleJournalRecent(ev dispatcher.Event) (any, error) {
	q, ok := e.journal.(storage.Querier)
	if !ok {
		return nil, errors.New("journal cannot be queried")
	}

	limit := defaultRecentLimit
	if len(ev.Args) > 0 && ev.Args[0] != "" {
		n, err := strconv.Atoi(ev.Args[0])
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("invalid limit %q", ev.Args[0])
		}
		limit = n
	}

	events, err := q.Recent(limit)
	if err != nil {
		return nil, fmt.Errorf("querying journal: %w", err)
	}
	out := make([]streaming.LifecyclePayload, 0, len(events))
	for _, le := range events {
		out = append(out, streaming.NewLifecyclePayload(le))
	}
	return out, nil
}
