//go:build linux

package session

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/godbus/dbus/v5"

	"github.com/phinze/halo/internal/platform"
)

const (
	login1Manager    = "org.freedesktop.login1.Manager"
	login1Session    = "org.freedesktop.login1.Session"
	fdoScreenSaver   = "org.freedesktop.ScreenSaver"
	gnomeScreenSaver = "org.gnome.ScreenSaver"
)

type match struct {
	iface  string
	member string
}

var (
	systemMatches = []match{
		{login1Manager, "PrepareForSleep"},
		{login1Session, "Unlock"},
	}
	sessionMatches = []match{
		{fdoScreenSaver, "ActiveChanged"},
		{gnomeScreenSaver, "ActiveChanged"},
	}
)

func start(ctx context.Context, wg *sync.WaitGroup, emit func(platform.EventKind)) (func(), error) {
	var (
		conns []*dbus.Conn
		errs  []error
	)

	for _, bus := range []struct {
		name    string
		connect func(...dbus.ConnOption) (*dbus.Conn, error)
		matches []match
	}{
		{"system", dbus.ConnectSystemBus, systemMatches},
		{"session", dbus.ConnectSessionBus, sessionMatches},
	} {
		conn, err := bus.connect()
		if err != nil {
			errs = append(errs, fmt.Errorf("connect %s bus: %w", bus.name, err))
			continue
		}
		if err := subscribe(conn, bus.matches); err != nil {
			conn.Close()
			errs = append(errs, fmt.Errorf("subscribe on %s bus: %w", bus.name, err))
			continue
		}
		conns = append(conns, conn)

		// Each connection closes its own channel on Close.
		ch := make(chan *dbus.Signal, 16)
		conn.Signal(ch)
		wg.Add(1)
		go func() {
			defer wg.Done()
			forward(ctx, ch, emit)
		}()
	}

	if len(conns) == 0 {
		return nil, errors.Join(errs...)
	}
	for _, err := range errs {
		log.Printf("Session events partly unavailable: %v", err)
	}

	return func() {
		for _, c := range conns {
			c.Close()
		}
	}, nil
}

func subscribe(conn *dbus.Conn, matches []match) error {
	for _, m := range matches {
		err := conn.AddMatchSignal(
			dbus.WithMatchInterface(m.iface),
			dbus.WithMatchMember(m.member),
		)
		if err != nil {
			return fmt.Errorf("match %s.%s: %w", m.iface, m.member, err)
		}
	}
	return nil
}

func forward(ctx context.Context, ch <-chan *dbus.Signal, emit func(platform.EventKind)) {
	for {
		select {
		case <-ctx.Done():
			return
		case sig, ok := <-ch:
			if !ok {
				return
			}
			if kind, ok := classify(sig); ok {
				emit(kind)
			}
		}
	}
}

// classify maps a D-Bus signal to the event it announces. Entering sleep
// and locking are ignored; only the return matters.
func classify(sig *dbus.Signal) (platform.EventKind, bool) {
	switch sig.Name {
	case login1Manager + ".PrepareForSleep":
		if entering, ok := firstBool(sig); ok && !entering {
			return platform.Wake, true
		}
	case login1Session + ".Unlock":
		return platform.SessionActive, true
	case fdoScreenSaver + ".ActiveChanged", gnomeScreenSaver + ".ActiveChanged":
		if active, ok := firstBool(sig); ok && !active {
			return platform.SessionActive, true
		}
	}
	return 0, false
}

func firstBool(sig *dbus.Signal) (bool, bool) {
	if len(sig.Body) == 0 {
		return false, false
	}
	v, ok := sig.Body[0].(bool)
	return v, ok
}
