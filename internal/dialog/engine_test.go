package dialog

import (
	"complaintbot/backend/internal/complaint"
	"complaintbot/backend/internal/localization"
	"complaintbot/backend/internal/models"
	"complaintbot/backend/internal/storage"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const reporterID int64 = 42

var clock = time.Date(2025, 3, 10, 14, 5, 0, 0, time.UTC)

type MockConsole struct {
	mock.Mock
}

func (m *MockConsole) Panel(ctx context.Context, callerID, chatID int64, quote int) models.Response {
	args := m.Called(ctx, callerID, chatID, quote)
	return args.Get(0).(models.Response)
}

func (m *MockConsole) HandleCallback(ctx context.Context, callerID int64, cb models.Callback) models.Response {
	args := m.Called(ctx, callerID, cb)
	return args.Get(0).(models.Response)
}

func (m *MockConsole) RelayEvidence(ctx context.Context, reporter models.Reporter, complaintID int64, media models.Media) error {
	args := m.Called(ctx, reporter, complaintID, media)
	return args.Error(0)
}

func (m *MockConsole) VideoID(callerID, chatID int64, quote int, media *models.Media) models.Response {
	args := m.Called(callerID, chatID, quote, media)
	return args.Get(0).(models.Response)
}

type failingFiler struct{}

func (failingFiler) File(context.Context, models.Reporter, models.ComplaintFields, string) (*models.ComplaintRecord, error) {
	return nil, errors.New("disk full")
}

type harness struct {
	engine   *Engine
	sessions *storage.MemorySessions
	store    *storage.FileStore
	console  *MockConsole
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	store, err := storage.OpenFileStore(filepath.Join(t.TempDir(), "complaints.jsonl"))
	require.NoError(t, err)
	loc, err := localization.NewLocalizer("kk")
	require.NoError(t, err)

	sessions := storage.NewMemorySessions()
	console := new(MockConsole)
	engine := NewEngine(sessions, complaint.NewService(store, nil), console, loc, "")
	engine.SetClock(func() time.Time { return clock })
	return &harness{engine: engine, sessions: sessions, store: store, console: console}
}

func reporter() models.Reporter {
	return models.Reporter{ID: reporterID, Handle: "rider", Lang: "en"}
}

func text(s string) Event {
	ev := Event{Reporter: reporter(), ChatID: reporterID, MessageID: 1, Text: s}
	if strings.HasPrefix(s, "/") {
		ev.Command = strings.TrimPrefix(strings.Fields(s)[0], "/")
	}
	return ev
}

func button(data string) Event {
	return Event{
		Reporter: reporter(),
		ChatID:   reporterID,
		Callback: &models.Callback{ChatID: reporterID, MessageID: 5, Data: data},
	}
}

func photo() Event {
	return Event{
		Reporter:  reporter(),
		ChatID:    reporterID,
		MessageID: 9,
		Media:     &models.Media{Type: models.MediaPhoto, FileID: "AgAC", ChatID: reporterID, MessageID: 9},
	}
}

func (h *harness) send(t *testing.T, ev Event) models.Response {
	t.Helper()
	resp, err := h.engine.Handle(context.Background(), ev)
	require.NoError(t, err)
	return resp
}

func (h *harness) conversation(t *testing.T) *models.Conversation {
	t.Helper()
	conv, err := h.sessions.Load(context.Background(), reporterID)
	require.NoError(t, err)
	return conv
}

func (h *harness) step(t *testing.T) models.Step {
	t.Helper()
	conv := h.conversation(t)
	if conv == nil {
		return models.StepIdle
	}
	return conv.Step
}

// walkTo drives a fresh conversation up to the given step.
func (h *harness) walkTo(t *testing.T, target models.Step) {
	t.Helper()
	inputs := []struct {
		ev   Event
		step models.Step
	}{
		{button(TokenStart), models.StepAwaitingRoute},
		{text("12"), models.StepAwaitingAspect},
		{text("Safety"), models.StepAwaitingDate},
		{text("Today"), models.StepAwaitingTime},
		{text("🕒 Now"), models.StepAwaitingStopName},
		{text("Keruen"), models.StepAwaitingDescription},
		{text("The driver was speeding, it was dangerous"), models.StepAwaitingAction},
	}
	for _, in := range inputs {
		h.send(t, in.ev)
		require.Equal(t, in.step, h.step(t))
		if in.step == target {
			return
		}
	}
}

func TestEngine_DigitRouteAdvancesOnce(t *testing.T) {
	for _, route := range []string{"7", "12", "105", "0042"} {
		t.Run(route, func(t *testing.T) {
			h := newHarness(t)
			h.walkTo(t, models.StepAwaitingRoute)

			resp := h.send(t, text(route))

			assert.Equal(t, models.StepAwaitingAspect, h.step(t))
			assert.Equal(t, route, h.conversation(t).Fields.RouteNumber)
			require.Len(t, resp.Replies, 1)
			assert.Contains(t, resp.Replies[0].Text, route)
			require.NotNil(t, resp.Replies[0].Keyboard)
			assert.Len(t, resp.Replies[0].Keyboard.Rows, 4)
		})
	}
}

func TestEngine_NonDigitRouteIsRejectedRepeatedly(t *testing.T) {
	h := newHarness(t)
	h.walkTo(t, models.StepAwaitingRoute)

	for _, input := range []string{"twelve", "12a", " 12", "1 2", "", "№7", "12.5"} {
		resp := h.send(t, text(input))
		assert.Equal(t, models.StepAwaitingRoute, h.step(t), "input %q", input)
		require.Len(t, resp.Replies, 1)
		assert.Contains(t, resp.Replies[0].Text, "digits")
	}
	assert.Empty(t, h.conversation(t).Fields.RouteNumber)
}

func TestEngine_AspectMustMatchALabel(t *testing.T) {
	h := newHarness(t)
	h.walkTo(t, models.StepAwaitingAspect)

	resp := h.send(t, text("something else"))
	assert.Equal(t, models.StepAwaitingAspect, h.step(t))
	require.Len(t, resp.Replies, 1)
	assert.NotNil(t, resp.Replies[0].Keyboard)

	// labels of every loaded language are accepted
	h.send(t, text("Безопасность"))
	assert.Equal(t, models.StepAwaitingDate, h.step(t))
	assert.Equal(t, models.AspectSafety, h.conversation(t).Fields.Aspect)
}

func TestEngine_DateAndTimeAliases(t *testing.T) {
	tests := []struct {
		date, time         string
		wantDate, wantTime string
	}{
		{"Today", "🕒 Now", "2025-03-10", "14:05"},
		{"Yesterday", "10:30", "2025-03-09", "10:30"},
		{"Кеше", "🕒 Қазіргі уақыт", "2025-03-09", "14:05"},
		{"06.11.2025", "around noon", "06.11.2025", "around noon"},
	}
	for _, tt := range tests {
		t.Run(tt.date, func(t *testing.T) {
			h := newHarness(t)
			h.walkTo(t, models.StepAwaitingDate)

			h.send(t, text(tt.date))
			h.send(t, text(tt.time))

			conv := h.conversation(t)
			assert.Equal(t, models.StepAwaitingStopName, conv.Step)
			assert.Equal(t, tt.wantDate, conv.Fields.IncidentDate)
			assert.Equal(t, tt.wantTime, conv.Fields.IncidentTime)
		})
	}
}

func TestEngine_MediaInTextStepRepromptsSameStep(t *testing.T) {
	h := newHarness(t)
	h.walkTo(t, models.StepAwaitingStopName)

	resp := h.send(t, photo())

	assert.Equal(t, models.StepAwaitingStopName, h.step(t))
	require.Len(t, resp.Replies, 1)
	assert.Contains(t, resp.Replies[0].Text, "stop")
	h.console.AssertNotCalled(t, "RelayEvidence", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestEngine_EmptyStopNameIsRejected(t *testing.T) {
	h := newHarness(t)
	h.walkTo(t, models.StepAwaitingStopName)

	h.send(t, text("   "))

	assert.Equal(t, models.StepAwaitingStopName, h.step(t))
}

func TestEngine_FinalizeAppendsOneNewRecord(t *testing.T) {
	// Arrange
	h := newHarness(t)
	earlier := &models.ComplaintRecord{ReporterID: 1, Status: models.StatusNew}
	require.NoError(t, h.store.Append(context.Background(), earlier))

	// Act
	h.walkTo(t, models.StepAwaitingAction)

	// Assert
	all, err := h.store.ReadAll(context.Background())
	require.NoError(t, err)
	require.Len(t, all, 2)
	rec := all[1]
	assert.Greater(t, rec.ID, earlier.ID)
	assert.Equal(t, models.StatusNew, rec.Status)
	assert.Equal(t, models.SeverityUrgent, rec.Severity)
	assert.Equal(t, "12", rec.RouteNumber)
	assert.Equal(t, models.AspectSafety, rec.Aspect)
	assert.Equal(t, "2025-03-10 14:05", rec.IncidentDateTime)
	assert.Equal(t, "Keruen", rec.Location)
	assert.Equal(t, "rider", rec.ReporterHandle)
	assert.Equal(t, "en", rec.Lang)
	assert.Equal(t, rec.ID, h.conversation(t).ComplaintID)
}

func TestEngine_FinalizeSummary(t *testing.T) {
	h := newHarness(t)
	h.walkTo(t, models.StepAwaitingDescription)

	resp := h.send(t, text("<b>bold</b> claim"))

	require.Len(t, resp.Replies, 1)
	reply := resp.Replies[0]
	assert.Contains(t, reply.Text, "has been accepted")
	assert.Contains(t, reply.Text, "Keruen")
	require.NotNil(t, reply.Keyboard)
	assert.Equal(t, TokenAddEvidence, reply.Keyboard.Rows[0][0].Data)
	assert.Equal(t, TokenFinish, reply.Keyboard.Rows[1][0].Data)
}

func TestEngine_FilingFailureKeepsDescriptionStep(t *testing.T) {
	h := newHarness(t)
	h.engine.Filer = failingFiler{}
	h.walkTo(t, models.StepAwaitingDescription)

	resp := h.send(t, text("bus never came"))

	assert.Equal(t, models.StepAwaitingDescription, h.step(t))
	require.Len(t, resp.Replies, 1)
	assert.Contains(t, resp.Replies[0].Text, "could not be saved")
	assert.Zero(t, h.conversation(t).ComplaintID)
}

func TestEngine_RestartDiscardsPartialFields(t *testing.T) {
	// Arrange
	h := newHarness(t)
	h.walkTo(t, models.StepAwaitingStopName)

	// Act
	resp := h.send(t, text("/start"))

	// Assert
	assert.Equal(t, models.StepIdle, h.step(t))
	assert.Nil(t, h.conversation(t))
	require.Len(t, resp.Replies, 1)
	assert.Equal(t, TokenStart, resp.Replies[0].Keyboard.Rows[0][0].Data)

	all, err := h.store.ReadAll(context.Background())
	require.NoError(t, err)
	assert.Empty(t, all)
	data, err := os.ReadFile(h.store.Path())
	if err == nil {
		assert.NotContains(t, string(data), "Keruen")
	}

	// a new dialog starts from scratch
	h.send(t, button(TokenStart))
	conv := h.conversation(t)
	assert.Equal(t, models.StepAwaitingRoute, conv.Step)
	assert.Equal(t, models.ComplaintFields{}, conv.Fields)
}

func TestEngine_StartButtonFromAnyStepRestartsDialog(t *testing.T) {
	h := newHarness(t)
	h.walkTo(t, models.StepAwaitingTime)

	resp := h.send(t, button(TokenStart))

	conv := h.conversation(t)
	assert.Equal(t, models.StepAwaitingRoute, conv.Step)
	assert.Empty(t, conv.Fields.RouteNumber)
	require.Len(t, resp.Replies, 1)
	assert.Equal(t, 5, resp.Replies[0].EditMessageID)
}

func TestEngine_HelpKeepsStep(t *testing.T) {
	h := newHarness(t)
	h.walkTo(t, models.StepAwaitingDate)

	resp := h.send(t, text("/help"))

	assert.Equal(t, models.StepAwaitingDate, h.step(t))
	require.Len(t, resp.Replies, 3)
	assert.Contains(t, resp.Replies[2].Text, "not been uploaded")

	h.engine.VideoFileID = "BAACAgIAAxkBAAI"
	resp = h.send(t, text("/help"))
	require.Len(t, resp.Replies, 3)
	assert.Equal(t, "BAACAgIAAxkBAAI", resp.Replies[2].VideoFileID)
}

func TestEngine_AdminCommandsAreDelegated(t *testing.T) {
	h := newHarness(t)
	h.walkTo(t, models.StepAwaitingAspect)
	panel := models.Response{}.Add(models.Reply{ChatID: reporterID, Text: "denied"})
	h.console.On("Panel", mock.Anything, reporterID, reporterID, 1).Return(panel).Once()
	alert := models.Response{Answer: "no", Alert: true}
	h.console.On("HandleCallback", mock.Anything, reporterID, mock.MatchedBy(func(cb models.Callback) bool {
		return cb.Data == "admin_resolve:17"
	})).Return(alert).Once()

	assert.Equal(t, panel, h.send(t, text("/admin")))
	assert.Equal(t, alert, h.send(t, button("admin_resolve:17")))

	assert.Equal(t, models.StepAwaitingAspect, h.step(t))
	h.console.AssertExpectations(t)
}

func TestEngine_GetIDVideoIsDelegated(t *testing.T) {
	h := newHarness(t)
	ev := Event{
		Reporter: reporter(),
		ChatID:   reporterID,
		Command:  CommandGetID,
		Media:    &models.Media{Type: models.MediaVideo, FileID: "BAAC"},
	}
	want := models.Response{}.Add(models.Reply{Text: "id"})
	h.console.On("VideoID", reporterID, reporterID, 0, ev.Media).Return(want).Once()

	assert.Equal(t, want, h.send(t, ev))
	h.console.AssertExpectations(t)
}

func TestEngine_EvidenceLoop(t *testing.T) {
	h := newHarness(t)
	h.walkTo(t, models.StepAwaitingAction)
	id := h.conversation(t).ComplaintID

	resp := h.send(t, button(TokenAddEvidence))
	require.Len(t, resp.Replies, 1)
	assert.Contains(t, resp.Replies[0].Text, "Send your evidence")
	assert.Equal(t, models.StepAwaitingAction, h.step(t))

	h.console.On("RelayEvidence", mock.Anything, mock.AnythingOfType("models.Reporter"), id, *photo().Media).Return(nil).Once()
	resp = h.send(t, photo())
	require.Len(t, resp.Replies, 1)
	assert.Contains(t, resp.Replies[0].Text, "has been received")
	assert.Equal(t, models.StepAwaitingAction, h.step(t))

	h.console.On("RelayEvidence", mock.Anything, mock.Anything, id, mock.Anything).Return(errors.New("forbidden")).Once()
	resp = h.send(t, photo())
	require.Len(t, resp.Replies, 1)
	assert.Contains(t, resp.Replies[0].Text, "error occurred while forwarding")
	assert.Equal(t, models.StepAwaitingAction, h.step(t))

	resp = h.send(t, text("what now?"))
	assert.Contains(t, resp.Replies[0].Text, "press one of the buttons")
	resp = h.send(t, text("/unknown"))
	assert.Contains(t, resp.Replies[0].Text, "valid command")
	assert.Equal(t, models.StepAwaitingAction, h.step(t))

	resp = h.send(t, button(TokenFinish))
	assert.Equal(t, models.StepIdle, h.step(t))
	assert.Nil(t, h.conversation(t))
	require.Len(t, resp.Replies, 1)
	assert.Equal(t, 5, resp.Replies[0].EditMessageID)
	h.console.AssertExpectations(t)
}

func TestEngine_IdleInput(t *testing.T) {
	h := newHarness(t)

	resp := h.send(t, text("hello"))
	require.Len(t, resp.Replies, 1)
	assert.Equal(t, TokenStart, resp.Replies[0].Keyboard.Rows[0][0].Data)

	resp = h.send(t, button(TokenFinish))
	assert.NotEmpty(t, resp.Answer)
	assert.Empty(t, resp.Replies)
	assert.Nil(t, h.conversation(t))
}

func TestEngine_ReportersAreIndependent(t *testing.T) {
	h := newHarness(t)
	other := button(TokenStart)
	other.Reporter.ID = 99
	other.ChatID = 99
	other.Callback.ChatID = 99

	h.walkTo(t, models.StepAwaitingAspect)
	h.send(t, other)

	assert.Equal(t, models.StepAwaitingAspect, h.step(t))
	conv, err := h.sessions.Load(context.Background(), 99)
	require.NoError(t, err)
	assert.Equal(t, models.StepAwaitingRoute, conv.Step)
}

func TestEngine_ConcurrentReportersFileSeparateRecords(t *testing.T) {
	h := newHarness(t)
	var wg sync.WaitGroup
	for i := int64(1); i <= 8; i++ {
		wg.Add(1)
		go func(id int64) {
			defer wg.Done()
			r := models.Reporter{ID: id, Lang: "en"}
			events := []Event{
				{Reporter: r, ChatID: id, Callback: &models.Callback{ChatID: id, Data: TokenStart}},
				{Reporter: r, ChatID: id, Text: "3"},
				{Reporter: r, ChatID: id, Text: "Payment"},
				{Reporter: r, ChatID: id, Text: "Today"},
				{Reporter: r, ChatID: id, Text: "09:00"},
				{Reporter: r, ChatID: id, Text: "Stop"},
				{Reporter: r, ChatID: id, Text: "card reader broken"},
			}
			for _, ev := range events {
				_, err := h.engine.Handle(context.Background(), ev)
				assert.NoError(t, err)
			}
		}(i)
	}
	wg.Wait()

	all, err := h.store.ReadAll(context.Background())
	require.NoError(t, err)
	assert.Len(t, all, 8)
	seen := map[int64]bool{}
	for _, rec := range all {
		assert.False(t, seen[rec.ID], "duplicate id %d", rec.ID)
		seen[rec.ID] = true
	}
	assert.Zero(t, h.engine.locks.size())
}

func TestEngine_Sweep(t *testing.T) {
	h := newHarness(t)
	h.walkTo(t, models.StepAwaitingRoute)

	h.engine.SetClock(func() time.Time { return clock.Add(2 * time.Hour) })
	removed, err := h.engine.Sweep(context.Background(), time.Hour)

	require.NoError(t, err)
	assert.Equal(t, 1, removed)
	assert.Nil(t, h.conversation(t))
}

func TestEngine_Transitions(t *testing.T) {
	h := newHarness(t)
	rows := h.engine.Transitions()
	require.NotEmpty(t, rows)

	// global commands are evaluated before any step-specific row
	for i, on := range []string{"/start", "/help", "/admin"} {
		assert.Equal(t, anyStep, rows[i].From)
		assert.Equal(t, on, rows[i].On)
	}

	// every step reacts to text
	for _, step := range models.Steps() {
		found := false
		for _, row := range rows {
			if row.From == step && row.On == string(classText) {
				found = true
				break
			}
		}
		assert.True(t, found, "no text transition from %s", step)
	}
}

func TestKeyedMutex_SerializesSameKey(t *testing.T) {
	var k keyedMutex
	counter := 0
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := k.Lock(1)
			counter++
			unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, 100, counter)
	assert.Zero(t, k.size())
}
