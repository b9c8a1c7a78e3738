// Package commands parses chat command lines and dispatches them to the
// carpool ledger operations.
package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/eastbay-carpool/tokenbot/internal/app/aliases"
	"github.com/eastbay-carpool/tokenbot/internal/app/trips"
	"github.com/eastbay-carpool/tokenbot/internal/domain"
	clockport "github.com/eastbay-carpool/tokenbot/internal/ports/out/clock"
	"github.com/eastbay-carpool/tokenbot/internal/ports/out/memberrepo"
	"github.com/eastbay-carpool/tokenbot/internal/ports/out/notifier"
	"github.com/eastbay-carpool/tokenbot/internal/ports/out/settingsrepo"
)

type Service struct {
	members  memberrepo.Repository
	settings settingsrepo.Repository
	aliases  *aliases.Registry
	trips    *trips.Service
	notify   notifier.Notifier
	clk      clockport.Clock
}

func NewService(
	members memberrepo.Repository,
	settings settingsrepo.Repository,
	reg *aliases.Registry,
	tripSvc *trips.Service,
	n notifier.Notifier,
	clk clockport.Clock,
) *Service {
	return &Service{
		members:  members,
		settings: settings,
		aliases:  reg,
		trips:    tripSvc,
		notify:   n,
		clk:      clk,
	}
}

// Execute runs one command line. User-input failures resolve into the
// Reply; only unexpected storage faults come back as errors.
func (s *Service) Execute(ctx context.Context, req Request) (Reply, error) {
	p := parseLine(req.Text)

	reply, err := s.dispatch(ctx, req, p)
	if err != nil {
		if msg, ok := userErrorMessage(err); ok {
			return Reply{Text: msg}, nil
		}
		return Reply{}, err
	}
	return reply, nil
}

func (s *Service) dispatch(ctx context.Context, req Request, p parsed) (Reply, error) {
	switch p.verb {
	case VerbHelp:
		return s.handleHelp(req), nil
	case VerbStatus:
		return s.handleStatus(ctx, req)
	case VerbSettings:
		return s.handleSettings(ctx, req, p.args)
	case VerbIntroduce:
		return s.handleIntroduce(ctx, req, p.args)
	case VerbEcho:
		return s.handleEcho(req, p.args), nil
	case VerbGive:
		return s.handleGive(ctx, req, p.args, false)
	case VerbTake:
		return s.handleGive(ctx, req, p.args, true)
	case VerbDrove:
		return s.handleDrove(ctx, req, p.subject, p.args)
	case VerbAka:
		return s.handleAka(ctx, req, p.subject, p.args)
	}
	return s.handleHelp(req), nil
}

// userErrorMessage unwraps the application error types whose messages are
// safe to show the caller.
func userErrorMessage(err error) (string, bool) {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Message, true
	}
	var ae *aliases.Error
	if errors.As(err, &ae) {
		return ae.Message, true
	}
	var te *trips.Error
	if errors.As(err, &te) {
		return te.Message, true
	}
	return "", false
}

// loadSettings returns the organization's settings, persisting the
// documented defaults on first access.
func (s *Service) loadSettings(ctx context.Context, org domain.OrgID) (domain.Settings, error) {
	st, err := s.settings.Get(ctx, org)
	if err == nil {
		return st, nil
	}
	if !errors.Is(err, settingsrepo.ErrNotFound) {
		return domain.Settings{}, err
	}
	st = domain.DefaultSettings(org)
	if err := s.settings.Put(ctx, st); err != nil {
		return domain.Settings{}, err
	}
	return st, nil
}

// notifyLog posts to the organization's log channel. The returned error is
// informational: callers report it in the reply, never roll back.
func (s *Service) notifyLog(ctx context.Context, st domain.Settings, msg notifier.Message) error {
	return s.notify.Send(ctx, notifier.Target{
		Channel: st.LogChannelName,
		Token:   st.BotAPIToken,
	}, msg)
}

// withNotifyNote appends a delivery-failure warning to a confirmation.
func withNotifyNote(text string, st domain.Settings, err error) string {
	if err == nil {
		return text
	}
	return fmt.Sprintf("%s\n(warning: could not post to #%s: %v)", text, st.LogChannelName, err)
}
