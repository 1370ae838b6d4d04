package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"civicwatch/internal/category"
	"civicwatch/internal/classification"
	"civicwatch/internal/db"
	"civicwatch/internal/models"
	"civicwatch/internal/voting"
)

// pngHeader is enough for content sniffing to report image/png.
var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01")

type envelope struct {
	Status string          `json:"status"`
	Error  string          `json:"error"`
	Data   json.RawMessage `json:"data"`
}

func newTestApp(user *models.User) *fiber.App {
	app := fiber.New()
	app.Use(func(c fiber.Ctx) error {
		if user != nil {
			c.Locals("user", user)
		}
		return c.Next()
	})
	return app
}

func doRequest(t *testing.T, app *fiber.App, req *http.Request) (int, envelope) {
	t.Helper()
	resp, err := app.Test(req, fiber.TestConfig{Timeout: 5 * time.Second})
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var env envelope
	require.NoError(t, json.Unmarshal(raw, &env), "body: %s", raw)
	return resp.StatusCode, env
}

func jsonRequest(method, target string, body any) *http.Request {
	var r io.Reader
	if body != nil {
		b, _ := json.Marshal(body)
		r = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, target, r)
	req.Header.Set("Content-Type", "application/json")
	return req
}

func rawRequest(method, target, body string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func multipartRequest(t *testing.T, target string, fields map[string]string, image []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	if image != nil {
		fw, err := w.CreateFormFile("image", "photo.png")
		require.NoError(t, err)
		_, err = fw.Write(image)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, target, &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}

func testRegistry() *category.Registry {
	return category.NewRegistry(category.Thresholds{})
}

func testUser(role string) *models.User {
	return &models.User{ID: uuid.New(), Sub: "sub-" + role, Email: role + "@example.com", Role: role}
}

// fakeGate returns a fixed result and records what it was asked.
type fakeGate struct {
	result      classification.Result
	calls       int
	contentType string
	expectedID  string
}

func (g *fakeGate) Classify(_ context.Context, _ []byte, contentType, expectedID string) classification.Result {
	g.calls++
	g.contentType = contentType
	g.expectedID = expectedID
	return g.result
}

// fakeImages is an in-memory ImageStore.
type fakeImages struct {
	putErr  error
	puts    []string
	deletes []string
}

func (s *fakeImages) Put(_ context.Context, key string, _ []byte, _ string) (string, error) {
	if s.putErr != nil {
		return "", s.putErr
	}
	s.puts = append(s.puts, key)
	return "https://images.example.com/" + key, nil
}

func (s *fakeImages) Delete(_ context.Context, key string) error {
	s.deletes = append(s.deletes, key)
	return nil
}

// fakeReports is an in-memory ReportStore.
type fakeReports struct {
	mu             sync.Mutex
	reports        map[int64]*models.Report
	nextID         int64
	createErr      error
	lastFilter     models.ReportFilter
	lastListStatus string
}

func newFakeReports() *fakeReports {
	return &fakeReports{reports: make(map[int64]*models.Report), nextID: 1}
}

func (f *fakeReports) add(r models.Report) *models.Report {
	f.mu.Lock()
	defer f.mu.Unlock()
	r.ID = f.nextID
	f.nextID++
	f.reports[r.ID] = &r
	return &r
}

func (f *fakeReports) CreateReport(_ context.Context, in models.NewReport) (*models.Report, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	return f.add(models.Report{
		UserID:           in.UserID,
		Problem:          in.Problem,
		Description:      in.Description,
		Lat:              in.Lat,
		Lng:              in.Lng,
		ImageURL:         in.ImageURL,
		ImageStorageKey:  in.ImageStorageKey,
		Status:           "new",
		ModerationStatus: "pending",
	}), nil
}

func (f *fakeReports) GetReportByID(_ context.Context, id int64) (*models.Report, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.reports[id]
	if !ok {
		return nil, db.ErrReportNotFound
	}
	cp := *r
	return &cp, nil
}

func (f *fakeReports) ListApprovedReports(_ context.Context, filter models.ReportFilter) ([]models.Report, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastFilter = filter
	var out []models.Report
	for _, r := range f.reports {
		if r.ModerationStatus == "approved" {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (f *fakeReports) ListReportsByModerationStatus(_ context.Context, status string, _ int) ([]models.Report, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastListStatus = status
	var out []models.Report
	for _, r := range f.reports {
		if r.ModerationStatus == status {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (f *fakeReports) ModerateReport(_ context.Context, id int64, status, reason string, moderatorID uuid.UUID) (*models.Report, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.reports[id]
	if !ok {
		return nil, db.ErrReportNotFound
	}
	now := time.Now()
	r.ModerationStatus = status
	r.ModerationReason = &reason
	r.ModeratedBy = &moderatorID
	r.ModeratedAt = &now
	cp := *r
	return &cp, nil
}

func (f *fakeReports) UpdateReportStatus(_ context.Context, id int64, status string) (*models.Report, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.reports[id]
	if !ok {
		return nil, db.ErrReportNotFound
	}
	r.Status = status
	cp := *r
	return &cp, nil
}

// fakeVotes keeps an in-memory ledger using the voting state machine.
type fakeVotes struct {
	reports map[int64]*voting.Tally
	ledger  map[string]voting.Value
}

func newFakeVotes(reportIDs ...int64) *fakeVotes {
	f := &fakeVotes{reports: make(map[int64]*voting.Tally), ledger: make(map[string]voting.Value)}
	for _, id := range reportIDs {
		f.reports[id] = &voting.Tally{}
	}
	return f
}

func (f *fakeVotes) ApplyVote(_ context.Context, userID uuid.UUID, reportID int64, dir voting.Direction) (*voting.Tally, error) {
	t, ok := f.reports[reportID]
	if !ok {
		return nil, db.ErrReportNotFound
	}
	key := userID.String()
	next, du, dd := voting.Transition(f.ledger[key], dir)
	f.ledger[key] = next
	t.Upvotes += du
	t.Downvotes += dd
	return &voting.Tally{Upvotes: t.Upvotes, Downvotes: t.Downvotes, UserVote: voting.UserVoteToken(next)}, nil
}

// recordingNotifier captures notifications.
type recordingNotifier struct {
	moderated []string
	changed   []string
}

func (n *recordingNotifier) NotifyReportModerated(_ context.Context, r *models.Report, reason string) {
	n.moderated = append(n.moderated, r.ModerationStatus+":"+reason)
}

func (n *recordingNotifier) NotifyReportStatusChanged(_ context.Context, r *models.Report) {
	n.changed = append(n.changed, r.Status)
}
