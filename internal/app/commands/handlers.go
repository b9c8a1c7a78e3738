package commands

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/eastbay-carpool/tokenbot/internal/app/aliases"
	"github.com/eastbay-carpool/tokenbot/internal/app/trips"
	"github.com/eastbay-carpool/tokenbot/internal/domain"
	"github.com/eastbay-carpool/tokenbot/internal/ports/out/memberrepo"
	"github.com/eastbay-carpool/tokenbot/internal/ports/out/notifier"
)

func (s *Service) handleHelp(req Request) Reply {
	verbs := make([]string, 0, len(imperativeOrder))
	for _, v := range imperativeOrder {
		verbs = append(verbs, string(v))
	}
	return Reply{Text: fmt.Sprintf(
		"%s is a carpool assistant. actions are: %s\n"+
			"report a trip: %s <user>|I drove <user> <user> ...\n"+
			"register a nickname: %s <user> aka <alias> ...",
		req.Command, strings.Join(verbs, ", "), req.Command, req.Command,
	)}
}

func (s *Service) handleEcho(req Request, args []string) Reply {
	return Reply{Text: strings.TrimSpace(fmt.Sprintf("%s echo %s", req.Command, strings.Join(args, " ")))}
}

func (s *Service) handleStatus(ctx context.Context, req Request) (Reply, error) {
	members, err := s.members.List(ctx, req.Org)
	if err != nil {
		return Reply{}, err
	}
	if len(members) == 0 {
		return Reply{Text: fmt.Sprintf("No members yet. Try: %s introduce me", req.Command)}, nil
	}
	sort.Slice(members, func(i, j int) bool {
		return strings.ToLower(string(members[i].Name)) < strings.ToLower(string(members[j].Name))
	})
	fields := make([]notifier.Field, 0, len(members))
	for _, m := range members {
		fields = append(fields, notifier.Field{
			Title: string(m.Name),
			Value: domain.FormatTokens(m.Balance) + " tokens",
			Short: true,
		})
	}
	return Reply{Message: &notifier.Message{
		Text:        "Current carpooler tokens",
		Attachments: []notifier.Attachment{{Fields: fields}},
	}}, nil
}

func (s *Service) handleSettings(ctx context.Context, req Request, args []string) (Reply, error) {
	switch {
	case len(args) == 0:
		st, err := s.loadSettings(ctx, req.Org)
		if err != nil {
			return Reply{}, err
		}
		atts := make([]notifier.Attachment, 0, len(domain.SettingKeys))
		for _, key := range domain.SettingKeys {
			v, _ := st.Value(key)
			atts = append(atts, notifier.Attachment{Text: fmt.Sprintf("%s: %s", key, v)})
		}
		return Reply{Message: &notifier.Message{
			Text:        "Current carpool settings",
			Attachments: atts,
		}}, nil

	case len(args) == 3 && strings.ToLower(args[0]) == "set":
		return s.handleSettingsSet(ctx, req, args[1], args[2])

	default:
		return Reply{}, &Error{
			Code:    ErrCodeMalformedCommand,
			Message: fmt.Sprintf("usage: %s settings set <param> <value>, or %s settings", req.Command, req.Command),
		}
	}
}

func (s *Service) handleSettingsSet(ctx context.Context, req Request, key, value string) (Reply, error) {
	kind, ok := domain.SettingSchema[key]
	if !ok {
		return Reply{}, &Error{
			Code:    ErrCodeUnknownSetting,
			Message: "Unknown setting " + key,
		}
	}

	st, err := s.loadSettings(ctx, req.Org)
	if err != nil {
		return Reply{}, err
	}

	display := value
	switch kind {
	case domain.SettingDecimal:
		d, derr := decimal.NewFromString(value)
		if derr != nil {
			return Reply{}, &Error{
				Code:    ErrCodeTypeMismatch,
				Message: fmt.Sprintf("Cannot convert %s to proper type", value),
			}
		}
		display = domain.FormatTokens(d)
		switch key {
		case domain.SettingTripCost:
			st.TripCost = d
		case domain.SettingNewUserCredit:
			st.NewUserCredit = d
		}
	case domain.SettingSecret:
		st.BotAPIToken = value
		display = domain.MaskSecret(value)
	default:
		st.LogChannelName = value
	}

	if err := s.settings.Put(ctx, st); err != nil {
		return Reply{}, err
	}

	text := fmt.Sprintf("Settings: changed %s to %s", key, display)
	if kind == domain.SettingSecret {
		// Never echo credentials through the log channel.
		return Reply{Text: text}, nil
	}
	// Posting after the Put means a changed log_channel_name confirms to
	// the new channel.
	nerr := s.notifyLog(ctx, st, notifier.Message{Text: text})
	return Reply{Text: withNotifyNote(text, st, nerr)}, nil
}

func (s *Service) handleIntroduce(ctx context.Context, req Request, args []string) (Reply, error) {
	if len(args) != 1 {
		return Reply{}, &Error{
			Code:    ErrCodeMalformedCommand,
			Message: fmt.Sprintf("usage: %s introduce <user>|me", req.Command),
		}
	}
	name := strings.TrimPrefix(args[0], "@")
	if strings.EqualFold(name, "me") {
		name = string(req.Caller)
	}

	st, err := s.loadSettings(ctx, req.Org)
	if err != nil {
		return Reply{}, err
	}

	now := s.clk.Now()
	m := domain.Member{
		Org:       req.Org,
		Name:      domain.MemberName(name),
		Balance:   st.NewUserCredit,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.members.Create(ctx, m); err != nil {
		if errors.Is(err, memberrepo.ErrAlreadyExists) {
			return Reply{}, &Error{
				Code:    ErrCodeMalformedCommand,
				Message: fmt.Sprintf("User %s already exists", name),
			}
		}
		return Reply{}, err
	}
	// The canonical name is part of the alias index.
	s.aliases.Invalidate(req.Org)

	text := "Added member " + name
	nerr := s.notifyLog(ctx, st, notifier.Message{Text: text})
	reply := fmt.Sprintf("Added member %s with %s tokens", name, domain.FormatTokens(st.NewUserCredit))
	return Reply{Text: withNotifyNote(reply, st, nerr)}, nil
}

func (s *Service) handleGive(ctx context.Context, req Request, args []string, negate bool) (Reply, error) {
	verb := VerbGive
	if negate {
		verb = VerbTake
	}
	if len(args) != 2 {
		return Reply{}, &Error{
			Code:    ErrCodeMalformedCommand,
			Message: fmt.Sprintf("usage: %s <user> <tokens>", verb),
		}
	}

	amount, err := decimal.NewFromString(args[1])
	if err != nil {
		return Reply{}, &Error{
			Code:    ErrCodeTypeMismatch,
			Message: fmt.Sprintf("%s is not a number", args[1]),
		}
	}
	if negate {
		amount = amount.Neg()
	}

	user, err := s.aliases.Resolve(ctx, req.Org, req.Caller, args[0], aliases.Object)
	if err != nil {
		return Reply{}, err
	}

	newBalance, err := s.members.AdjustBalance(ctx, req.Org, user, amount)
	if err != nil {
		if errors.Is(err, memberrepo.ErrNotFound) {
			return Reply{}, &Error{
				Code:    ErrCodeMemberNotFound,
				Message: fmt.Sprintf("User %s not found", user),
			}
		}
		return Reply{}, err
	}

	var text string
	if amount.Sign() >= 0 {
		text = fmt.Sprintf("Gave %s tokens to %s, who now has %s",
			domain.FormatTokens(amount), user, domain.FormatTokens(newBalance))
	} else {
		text = fmt.Sprintf("Took %s tokens from %s, who now has %s",
			domain.FormatTokens(amount.Neg()), user, domain.FormatTokens(newBalance))
	}

	st, err := s.loadSettings(ctx, req.Org)
	if err != nil {
		return Reply{}, err
	}
	nerr := s.notifyLog(ctx, st, notifier.Message{Text: text})
	return Reply{Text: withNotifyNote(text, st, nerr)}, nil
}

func (s *Service) handleAka(ctx context.Context, req Request, subject string, args []string) (Reply, error) {
	member, err := s.aliases.Resolve(ctx, req.Org, req.Caller, subject, aliases.Subject)
	if err != nil {
		return Reply{}, err
	}
	if _, err := s.members.Get(ctx, req.Org, member); err != nil {
		if errors.Is(err, memberrepo.ErrNotFound) {
			return Reply{}, &Error{
				Code:    ErrCodeMemberNotFound,
				Message: fmt.Sprintf("User %s not found", member),
			}
		}
		return Reply{}, err
	}

	reserved := ReservedWords()
	registered := make([]string, 0, len(args))
	var failMsg string
	for _, alias := range args {
		if err := s.aliases.Register(ctx, req.Org, member, alias, reserved); err != nil {
			msg, ok := userErrorMessage(err)
			if !ok {
				return Reply{}, err
			}
			failMsg = msg
			break
		}
		registered = append(registered, alias)
	}
	if len(registered) == 0 {
		return Reply{Text: failMsg}, nil
	}

	// A later alias may have been rejected; the earlier ones stuck.
	text := fmt.Sprintf("%s is also known as %s", member, strings.Join(registered, ", "))
	st, err := s.loadSettings(ctx, req.Org)
	if err != nil {
		return Reply{}, err
	}
	nerr := s.notifyLog(ctx, st, notifier.Message{Text: text})
	text = withNotifyNote(text, st, nerr)
	if failMsg != "" {
		text += "\n" + failMsg
	}
	return Reply{Text: text}, nil
}

func tripInput(req Request, subject string, args []string) trips.Input {
	return trips.Input{
		Org:        req.Org,
		Caller:     req.Caller,
		Driver:     subject,
		Passengers: args,
	}
}

func (s *Service) handleDrove(ctx context.Context, req Request, subject string, args []string) (Reply, error) {
	st, err := s.loadSettings(ctx, req.Org)
	if err != nil {
		return Reply{}, err
	}

	res, err := s.trips.Settle(ctx, tripInput(req, subject, args), st.TripCost)
	if err != nil {
		return Reply{}, err
	}

	passengers := make([]string, 0, len(res.Passengers))
	for _, p := range res.Passengers {
		passengers = append(passengers, string(p))
	}
	fields := make([]notifier.Field, 0, len(res.Changes))
	for _, c := range res.Changes {
		fields = append(fields, notifier.Field{
			Title: string(c.Name),
			Value: domain.FormatTokensSigned(c.Delta) + "\n" + domain.FormatTokens(c.NewBalance),
			Short: true,
		})
	}
	msg := notifier.Message{
		Text: fmt.Sprintf("%s reported a trip:", req.Caller),
		Attachments: []notifier.Attachment{{
			Text:   fmt.Sprintf("%s drove %s", res.Driver, strings.Join(passengers, ", ")),
			Fields: fields,
		}},
	}

	nerr := s.notifyLog(ctx, st, msg)
	reply := Reply{Message: &msg}
	if nerr != nil || res.JournalErr != nil {
		note := msg.Text
		note = withNotifyNote(note, st, nerr)
		if res.JournalErr != nil {
			note += fmt.Sprintf("\n(warning: trip was settled but not journaled: %v)", res.JournalErr)
		}
		reply.Text = note
	}
	return reply, nil
}
