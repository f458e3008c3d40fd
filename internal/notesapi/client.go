package notesapi

import (
	"context"
	"net/http"
	"time"

	"github.com/ahsanfayaz52/noteboard/internal/logger"
	"github.com/ahsanfayaz52/noteboard/internal/metrics"
	"github.com/ahsanfayaz52/noteboard/internal/models"
	"github.com/machinebox/graphql"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// TokenSource yields the bearer for the current request. The session layer
// supplies it; callers of the client never pass tokens explicitly.
type TokenSource func(ctx context.Context) (string, error)

// StringFilter mirrors TableStringFilterInput.
type StringFilter struct {
	Eq         *string `json:"eq,omitempty"`
	Contains   *string `json:"contains,omitempty"`
	BeginsWith *string `json:"beginsWith,omitempty"`
}

// NotesFilter mirrors TableNotesFilterInput.
type NotesFilter struct {
	ID   *StringFilter `json:"id,omitempty"`
	Name *StringFilter `json:"name,omitempty"`
}

type ListInput struct {
	Limit     int
	NextToken *string
	Filter    *NotesFilter
}

// Client runs the notes operations against a GraphQL endpoint authorized
// with the user's access token.
type Client struct {
	gql     *graphql.Client
	token   TokenSource
	logger  *zap.Logger
	metrics *metrics.Metrics
}

type Option func(*clientOptions)

type clientOptions struct {
	httpClient *http.Client
	logger     *zap.Logger
	metrics    *metrics.Metrics
}

func WithHTTPClient(c *http.Client) Option {
	return func(o *clientOptions) { o.httpClient = c }
}

func WithLogger(l *zap.Logger) Option {
	return func(o *clientOptions) { o.logger = l }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(o *clientOptions) { o.metrics = m }
}

func NewClient(endpoint string, token TokenSource, opts ...Option) *Client {
	o := &clientOptions{
		httpClient: http.DefaultClient,
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(o)
	}

	gql := graphql.NewClient(endpoint, graphql.WithHTTPClient(o.httpClient))
	gql.Log = func(s string) { o.logger.Debug(s) }

	return &Client{
		gql:     gql,
		token:   token,
		logger:  o.logger,
		metrics: o.metrics,
	}
}

func (c *Client) ListNotes(ctx context.Context, in ListInput) (*models.NotePage, error) {
	req := graphql.NewRequest(listNotesQuery)
	req.Var("limit", in.Limit)
	if in.NextToken != nil {
		req.Var("nextToken", *in.NextToken)
	}
	if in.Filter != nil {
		req.Var("filter", in.Filter)
	}

	var resp struct {
		ListNotes *models.NotePage `json:"listNotes"`
	}
	if err := c.run(ctx, "listNotes", req, &resp); err != nil {
		return nil, err
	}
	if resp.ListNotes == nil {
		return &models.NotePage{}, nil
	}
	if resp.ListNotes.NextToken != nil && *resp.ListNotes.NextToken == "" {
		resp.ListNotes.NextToken = nil
	}
	return resp.ListNotes, nil
}

func (c *Client) CreateNote(ctx context.Context, name string) (*models.Note, error) {
	req := graphql.NewRequest(createNoteMutation)
	req.Var("input", map[string]string{"name": name})

	var resp struct {
		CreateNotes *models.Note `json:"createNotes"`
	}
	if err := c.run(ctx, "createNotes", req, &resp); err != nil {
		return nil, err
	}
	if resp.CreateNotes == nil {
		return nil, errors.New("createNotes returned no note")
	}
	return resp.CreateNotes, nil
}

// DeleteNote returns the id reported by the API for the deleted record.
func (c *Client) DeleteNote(ctx context.Context, id string) (string, error) {
	req := graphql.NewRequest(deleteNoteMutation)
	req.Var("input", map[string]string{"id": id})

	var resp struct {
		DeleteNotes *struct {
			ID string `json:"id"`
		} `json:"deleteNotes"`
	}
	if err := c.run(ctx, "deleteNotes", req, &resp); err != nil {
		return "", err
	}
	if resp.DeleteNotes == nil {
		return "", errors.Errorf("deleteNotes: note %s not found", id)
	}
	return resp.DeleteNotes.ID, nil
}

func (c *Client) run(ctx context.Context, op string, req *graphql.Request, resp interface{}) error {
	token, err := c.token(ctx)
	if err != nil {
		return errors.Wrap(err, op)
	}
	req.Header.Set("Authorization", token)

	start := time.Now()
	err = c.gql.Run(ctx, req, resp)
	c.metrics.ObserveAPI(op, start, err)
	if err != nil {
		c.logger.Warn("notes api request failed",
			zap.String(logger.FieldOperation, op),
			zap.Duration(logger.FieldDuration, time.Since(start)),
			zap.Error(err))
		return errors.Wrap(err, op)
	}

	c.logger.Debug("notes api request",
		zap.String(logger.FieldOperation, op),
		zap.Duration(logger.FieldDuration, time.Since(start)))
	return nil
}
