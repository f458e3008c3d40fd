package notelist

import (
	"context"
	"strings"
	"sync"

	"github.com/ahsanfayaz52/noteboard/internal/logger"
	"github.com/ahsanfayaz52/noteboard/internal/models"
	"github.com/ahsanfayaz52/noteboard/internal/notesapi"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// DefaultPageSize is the number of notes requested per page.
const DefaultPageSize = 50

// ErrEmptyName is returned when a note name is blank after trimming. No
// request is sent in that case.
var ErrEmptyName = errors.New("note name is empty")

// ErrResyncFailed matches errors from Create and Delete where the mutation
// was applied remotely but reloading the first page failed.
var ErrResyncFailed = errors.New("resync after mutation failed")

type resyncError struct {
	err error
}

func (e *resyncError) Error() string { return "resync after mutation: " + e.err.Error() }
func (e *resyncError) Unwrap() error { return e.err }
func (e *resyncError) Is(target error) bool { return target == ErrResyncFailed }

// API is the remote notes service.
type API interface {
	ListNotes(ctx context.Context, in notesapi.ListInput) (*models.NotePage, error)
	CreateNote(ctx context.Context, name string) (*models.Note, error)
	DeleteNote(ctx context.Context, id string) (string, error)
}

// View is a snapshot of the controller state for rendering.
type View struct {
	Notes   []models.Note
	HasMore bool
	Draft   string
	Loaded  bool
}

// Controller holds one user's view of the note list: a prefix of the remote
// enumeration plus the cursor for the next page. The mutex guards state
// only; remote calls run unlocked, so concurrent mutations are sent
// independently and the last resync to land wins.
type Controller struct {
	api      API
	pageSize int
	logger   *zap.Logger

	mu        sync.Mutex
	notes     []models.Note
	nextToken *string
	draft     string
	loaded    bool

	// generation changes on every reset; a next-page response fetched under
	// an older generation is dropped.
	generation uint64
}

func New(api API, pageSize int, logger *zap.Logger) *Controller {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &Controller{api: api, pageSize: pageSize, logger: logger}
}

// LoadFirstPage replaces the local collection with the first page.
func (c *Controller) LoadFirstPage(ctx context.Context) error {
	page, err := c.api.ListNotes(ctx, notesapi.ListInput{Limit: c.pageSize})
	if err != nil {
		return errors.Wrap(err, "load first page")
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.notes = append([]models.Note(nil), page.Items...)
	c.nextToken = cursor(page)
	c.loaded = true
	c.generation++

	c.logger.Debug("first page loaded", zap.Int(logger.FieldCount, len(page.Items)), zap.Bool("hasMore", c.nextToken != nil))
	return nil
}

// LoadNextPage appends the page after the stored cursor. It does nothing
// when there is no cursor.
func (c *Controller) LoadNextPage(ctx context.Context) error {
	c.mu.Lock()
	if c.nextToken == nil {
		c.mu.Unlock()
		return nil
	}
	token := *c.nextToken
	gen := c.generation
	c.mu.Unlock()

	page, err := c.api.ListNotes(ctx, notesapi.ListInput{Limit: c.pageSize, NextToken: &token})
	if err != nil {
		return errors.Wrap(err, "load next page")
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.generation || c.nextToken == nil || *c.nextToken != token {
		c.logger.Debug("dropping stale page", zap.String(logger.FieldCursor, token))
		return nil
	}
	c.notes = append(c.notes, page.Items...)
	c.nextToken = cursor(page)

	c.logger.Debug("next page loaded", zap.Int(logger.FieldCount, len(page.Items)), zap.Bool("hasMore", c.nextToken != nil))
	return nil
}

// Create submits a new note and resyncs. The draft keeps what was typed
// until the create succeeds.
func (c *Controller) Create(ctx context.Context, name string) error {
	c.setDraft(name)

	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return ErrEmptyName
	}

	note, err := c.api.CreateNote(ctx, trimmed)
	if err != nil {
		return errors.Wrap(err, "create note")
	}
	c.logger.Info("note created", zap.String(logger.FieldNoteID, note.ID))

	c.setDraft("")
	return c.resync(ctx)
}

func (c *Controller) Delete(ctx context.Context, id string) error {
	deleted, err := c.api.DeleteNote(ctx, id)
	if err != nil {
		return errors.Wrap(err, "delete note")
	}
	c.logger.Info("note deleted", zap.String(logger.FieldNoteID, deleted))

	return c.resync(ctx)
}

// resync reloads the first page after a mutation. On failure the view is
// marked unloaded so the next render reloads it.
func (c *Controller) resync(ctx context.Context) error {
	if err := c.LoadFirstPage(ctx); err != nil {
		c.mu.Lock()
		c.loaded = false
		c.mu.Unlock()
		return &resyncError{err: err}
	}
	return nil
}

func (c *Controller) View() View {
	c.mu.Lock()
	defer c.mu.Unlock()
	return View{
		Notes:   append([]models.Note(nil), c.notes...),
		HasMore: c.nextToken != nil,
		Draft:   c.draft,
		Loaded:  c.loaded,
	}
}

func (c *Controller) Loaded() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loaded
}

func (c *Controller) setDraft(s string) {
	c.mu.Lock()
	c.draft = s
	c.mu.Unlock()
}

func cursor(page *models.NotePage) *string {
	if !page.HasMore() {
		return nil
	}
	t := *page.NextToken
	return &t
}
