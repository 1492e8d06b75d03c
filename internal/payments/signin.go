package payments

import (
	"context"
	"log/slog"
	"net/url"
	"strings"

	"zapnest/internal/notifications"
	"zapnest/internal/telemetry"
	"zapnest/internal/types"
)

// SideEffectMagicLinkEmail names the dashboard sign-in dispatch.
const SideEffectMagicLinkEmail = "magic_link_email"

// SignInService mails dashboard sign-in links. Links are only sent when they
// point at the member dashboard, so the endpoint cannot relay arbitrary URLs.
type SignInService struct {
	dispatcher notifications.Dispatcher
	recorder   telemetry.Recorder
	dashboard  *url.URL
	logger     *slog.Logger
}

// NewSignInService creates a SignInService. An unparsable dashboardURL makes
// every link fail validation.
func NewSignInService(dispatcher notifications.Dispatcher, recorder telemetry.Recorder, dashboardURL string, logger *slog.Logger) *SignInService {
	if dispatcher == nil {
		dispatcher = notifications.DisabledDispatcher{Logger: logger}
	}
	if recorder == nil {
		recorder = telemetry.NopRecorder{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	s := &SignInService{dispatcher: dispatcher, recorder: recorder, logger: logger}
	if u, err := url.Parse(dashboardURL); err == nil && u.Host != "" {
		s.dashboard = u
	}
	return s
}

// SendMagicLink emails link to email and returns the dispatch message ID.
// Unlike the post-payment emails, a failed dispatch is returned as an error
// because the email is the whole operation.
func (s *SignInService) SendMagicLink(ctx context.Context, email, link string) (string, error) {
	email = types.NormalizeEmail(email)
	link = strings.TrimSpace(link)
	if email == "" || link == "" {
		return "", types.NewAppError(types.ErrCodeValidationMissingField, "Email and magicLink are required", nil)
	}
	if !s.allowed(link) {
		return "", types.NewAppError(types.ErrCodeValidationInvalidLink, "magicLink must point at the member dashboard", nil)
	}

	res := s.dispatcher.Dispatch(ctx, types.EmailMessage{
		Template:  types.EmailTemplateMagicLink,
		To:        email,
		MagicLink: link,
	})
	effect := SideEffect{
		Name:      SideEffectMagicLinkEmail,
		Attempted: res.Attempted,
		Succeeded: res.Succeeded,
		Err:       res.Err,
	}
	s.recorder.RecordOutcome(ctx, effect.Name, effect.result())

	switch {
	case !res.Attempted:
		return "", types.NewAppError(types.ErrCodeInternalMisconfigured, "Email service not configured", nil)
	case res.Err != nil:
		s.logger.ErrorContext(ctx, "sign-in email failed",
			"to", notifications.RedactEmail(email),
			"error", res.Err.Error(),
		)
		return "", types.NewAppError(types.ErrCodeUpstreamEmailProvider, "Failed to send sign-in email", res.Err)
	}
	s.logger.InfoContext(ctx, "sign-in email sent",
		"to", notifications.RedactEmail(email),
		"message_id", res.MessageID,
	)
	return res.MessageID, nil
}

// allowed reports whether link shares the dashboard's scheme and host.
func (s *SignInService) allowed(link string) bool {
	if s.dashboard == nil {
		return false
	}
	u, err := url.Parse(link)
	if err != nil || u.User != nil {
		return false
	}
	return strings.EqualFold(u.Scheme, s.dashboard.Scheme) && strings.EqualFold(u.Host, s.dashboard.Host)
}
