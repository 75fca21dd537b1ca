// Package admin is the operator surface of the bot: the pending complaint panel,
// resolve/reject actions and evidence relay. Only the configured operator may use it.
package admin

import (
	"complaintbot/backend/internal/config"
	"complaintbot/backend/internal/errs"
	"complaintbot/backend/internal/localization"
	"complaintbot/backend/internal/models"
	"context"
	"errors"
	"fmt"
	"html"
	"log"
	"strconv"
	"strings"
)

// Callback data prefixes of the panel buttons.
const (
	ResolvePrefix = "admin_resolve:"
	RejectPrefix  = "admin_reject:"
)

// IsAction reports whether callback data belongs to the operator panel.
func IsAction(data string) bool {
	return strings.HasPrefix(data, ResolvePrefix) || strings.HasPrefix(data, RejectPrefix)
}

// ParseAction splits panel callback data into the target status and complaint id.
func ParseAction(data string) (models.Status, int64, error) {
	var status models.Status
	var raw string
	switch {
	case strings.HasPrefix(data, ResolvePrefix):
		status, raw = models.StatusResolved, strings.TrimPrefix(data, ResolvePrefix)
	case strings.HasPrefix(data, RejectPrefix):
		status, raw = models.StatusRejected, strings.TrimPrefix(data, RejectPrefix)
	default:
		return "", 0, fmt.Errorf("unknown admin action %q", data)
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return "", 0, fmt.Errorf("bad complaint id in %q: %w", data, err)
	}
	return status, id, nil
}

// ComplaintService is the part of the complaint pipeline the console drives.
type ComplaintService interface {
	ChangeStatus(ctx context.Context, id int64, status models.Status) (*models.ComplaintRecord, error)
	List(ctx context.Context, status models.Status, limit int) ([]models.ComplaintRecord, error)
	CountPending(ctx context.Context) (int, error)
	Get(ctx context.Context, id int64) (*models.ComplaintRecord, error)
}

// MediaRelay copies an uploaded attachment into another chat.
type MediaRelay interface {
	CopyMedia(ctx context.Context, toChatID int64, media models.Media, caption string) error
}

// EvidenceNotifier is told about every relayed attachment.
type EvidenceNotifier interface {
	EvidenceRelayed(rec models.ComplaintRecord)
}

type Console struct {
	OperatorID int64
	Complaints ComplaintService
	Relay      MediaRelay
	Notifier   EvidenceNotifier
	Localizer  *localization.Localizer
	// Lang is the operator's language.
	Lang string
}

func NewConsole(operatorID int64, complaints ComplaintService, relay MediaRelay, notifier EvidenceNotifier, loc *localization.Localizer, lang string) *Console {
	return &Console{
		OperatorID: operatorID,
		Complaints: complaints,
		Relay:      relay,
		Notifier:   notifier,
		Localizer:  loc,
		Lang:       loc.Resolve(lang),
	}
}

// Authorized reports whether the caller is the operator.
func (c *Console) Authorized(callerID int64) bool {
	return callerID != 0 && callerID == c.OperatorID
}

func (c *Console) text(key string, args ...any) string {
	return c.Localizer.Format(c.Lang, key, args...)
}

func (c *Console) statusLabel(s models.Status) string {
	return c.Localizer.GetString(c.Lang, "status_"+string(s))
}

// Panel renders the /admin listing: a header with the pending count and the most
// recent pending complaints, each with resolve and reject buttons.
func (c *Console) Panel(ctx context.Context, callerID, chatID int64, quote int) models.Response {
	if !c.Authorized(callerID) {
		log.Printf("WARN: /admin requested by %d, not the operator", callerID)
		return models.Response{}.Add(models.Reply{ChatID: chatID, Text: c.text("admin_denied"), QuoteMessageID: quote})
	}

	count, err := c.Complaints.CountPending(ctx)
	if err != nil {
		log.Printf("ERROR: count pending complaints: %v", err)
		return models.Response{}.Add(models.Reply{ChatID: chatID, Text: c.text("store_error")})
	}
	if count == 0 {
		return models.Response{}.Add(models.Reply{ChatID: chatID, Text: c.text("admin_empty"), QuoteMessageID: quote})
	}
	pending, err := c.Complaints.List(ctx, models.StatusNew, config.PendingListLimit)
	if err != nil {
		log.Printf("ERROR: list pending complaints: %v", err)
		return models.Response{}.Add(models.Reply{ChatID: chatID, Text: c.text("store_error")})
	}

	resp := models.Response{}.Add(models.Reply{ChatID: chatID, Text: c.text("admin_header", count), QuoteMessageID: quote})
	for _, rec := range pending {
		resp = resp.Add(models.Reply{
			ChatID:   chatID,
			Text:     c.entry(rec),
			Keyboard: c.actionKeyboard(rec.ID),
		})
	}
	return resp
}

func (c *Console) entry(rec models.ComplaintRecord) string {
	return c.text("admin_entry",
		rec.ID,
		html.EscapeString(rec.ReporterHandle),
		html.EscapeString(rec.Object),
		c.Localizer.GetString(c.Lang, "aspect_"+string(rec.Aspect)),
		html.EscapeString(rec.IncidentDateTime),
		html.EscapeString(rec.Location),
		c.Localizer.GetString(c.Lang, "severity_"+string(rec.Severity)),
		html.EscapeString(rec.Description),
	)
}

func (c *Console) actionKeyboard(id int64) *models.Keyboard {
	return &models.Keyboard{
		Inline: true,
		Rows: [][]models.Button{{
			{Label: c.text("btn_resolve"), Data: ResolvePrefix + strconv.FormatInt(id, 10)},
			{Label: c.text("btn_reject"), Data: RejectPrefix + strconv.FormatInt(id, 10)},
		}},
	}
}

// Resolve marks a pending complaint as resolved and notifies its reporter.
func (c *Console) Resolve(ctx context.Context, callerID, id int64) (*models.ComplaintRecord, error) {
	return c.setStatus(ctx, callerID, id, models.StatusResolved)
}

// Reject marks a pending complaint as rejected and notifies its reporter.
func (c *Console) Reject(ctx context.Context, callerID, id int64) (*models.ComplaintRecord, error) {
	return c.setStatus(ctx, callerID, id, models.StatusRejected)
}

func (c *Console) setStatus(ctx context.Context, callerID, id int64, status models.Status) (*models.ComplaintRecord, error) {
	if !c.Authorized(callerID) {
		log.Printf("WARN: %d tried to set complaint %d to %s", callerID, id, status)
		return nil, errs.ErrUnauthorized
	}
	return c.Complaints.ChangeStatus(ctx, id, status)
}

// HandleCallback runs a panel button press. On success the listing message is
// edited to carry the new status.
func (c *Console) HandleCallback(ctx context.Context, callerID int64, cb models.Callback) models.Response {
	if !c.Authorized(callerID) {
		log.Printf("WARN: admin callback %q from %d, not the operator", cb.Data, callerID)
		return models.Response{Answer: c.text("admin_no_access"), Alert: true}
	}
	status, id, err := ParseAction(cb.Data)
	if err != nil {
		log.Printf("WARN: %v", err)
		return models.Response{Answer: c.text("admin_bad_action"), Alert: true}
	}

	rec, err := c.setStatus(ctx, callerID, id, status)
	switch {
	case errors.Is(err, errs.ErrRecordNotFound):
		return models.Response{Answer: c.text("admin_not_found", id), Alert: true}
	case errors.Is(err, errs.ErrStatusFinal):
		current := models.Status("")
		if rec != nil {
			current = rec.Status
		}
		return models.Response{Answer: c.text("admin_already_final", id, c.statusLabel(current)), Alert: true}
	case err != nil:
		log.Printf("ERROR: set complaint %d to %s: %v", id, status, err)
		return models.Response{Answer: c.text("store_error"), Alert: true}
	}

	label := c.statusLabel(rec.Status)
	return models.Response{
		Replies: []models.Reply{{
			ChatID:        cb.ChatID,
			Text:          html.EscapeString(cb.MessageText) + c.text("admin_annotation", label),
			EditMessageID: cb.MessageID,
		}},
		Answer: c.text("admin_status_set", id, label),
	}
}

// RelayEvidence copies a reporter's attachment to the operator, captioned with
// the complaint id and the reporter.
func (c *Console) RelayEvidence(ctx context.Context, reporter models.Reporter, complaintID int64, media models.Media) error {
	if complaintID <= 0 {
		return errs.ErrNoComplaint
	}
	handle := reporter.Handle
	if handle == "" {
		handle = "-"
	}
	caption := c.text("evidence_caption", complaintID, html.EscapeString(handle), reporter.ID)
	if err := c.Relay.CopyMedia(ctx, c.OperatorID, media, caption); err != nil {
		return fmt.Errorf("relay %s for complaint %d: %w", media.Type, complaintID, err)
	}
	log.Printf("INFO: %s evidence for complaint %d relayed to the operator", media.Type, complaintID)

	if c.Notifier != nil {
		rec, err := c.Complaints.Get(ctx, complaintID)
		if err != nil {
			log.Printf("WARN: evidence event for complaint %d skipped: %v", complaintID, err)
			return nil
		}
		c.Notifier.EvidenceRelayed(*rec)
	}
	return nil
}

// VideoID answers the hidden /get_id command: the operator gets the file id of
// the video they sent, used to configure the help video guide.
func (c *Console) VideoID(callerID, chatID int64, quote int, media *models.Media) models.Response {
	if !c.Authorized(callerID) || media == nil || media.Type != models.MediaVideo {
		return models.Response{}.Add(models.Reply{ChatID: chatID, Text: c.text("get_id_denied"), QuoteMessageID: quote})
	}
	return models.Response{}.Add(models.Reply{
		ChatID:         chatID,
		Text:           c.text("get_id_reply", html.EscapeString(media.FileID)),
		QuoteMessageID: quote,
	})
}
