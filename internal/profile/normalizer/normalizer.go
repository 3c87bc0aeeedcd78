// Package normalizer turns stored documents into credentials: decrypt, parse,
// tag. A document that cannot be read is logged, counted and skipped; it never
// fails the person's run.
package normalizer

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"beneficiary/internal/profile/domain/credential"
	"beneficiary/internal/profile/metrics"
	"beneficiary/internal/profile/models"
	"beneficiary/pkg/jsonvalue"
)

// Skip reasons, used as metric labels.
const (
	ReasonDecrypt = "decrypt"
	ReasonParse   = "parse"
	ReasonInvalid = "invalid"
)

const defaultConcurrency = 4

// Decrypter opens document ciphertext.
type Decrypter interface {
	Decrypt(ciphertext string) (string, error)
}

// Normalizer is safe for concurrent use.
type Normalizer struct {
	decrypter   Decrypter
	logger      *slog.Logger
	metrics     *metrics.Metrics
	concurrency int
}

// Option configures a Normalizer.
type Option func(*Normalizer)

func WithLogger(logger *slog.Logger) Option {
	return func(n *Normalizer) {
		n.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(n *Normalizer) {
		n.metrics = m
	}
}

// WithConcurrency bounds how many documents of one person are decrypted and
// parsed at once. Values below 1 are ignored.
func WithConcurrency(limit int) Option {
	return func(n *Normalizer) {
		if limit > 0 {
			n.concurrency = limit
		}
	}
}

func New(decrypter Decrypter, opts ...Option) *Normalizer {
	n := &Normalizer{
		decrypter:   decrypter,
		logger:      slog.Default(),
		concurrency: defaultConcurrency,
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Normalize returns credentials in the same relative order as docs, with
// unreadable documents left out. DocDatatype names the uploaded source file
// and is not consulted; the payload is JSON whenever it decrypts and parses. The only error is context cancellation.
func (n *Normalizer) Normalize(ctx context.Context, docs []models.Document) ([]*credential.Credential, error) {
	slots := make([]*credential.Credential, len(docs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(n.concurrency)
	for i := range docs {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			slots[i] = n.normalizeOne(gctx, docs[i])
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	out := make([]*credential.Credential, 0, len(docs))
	for _, c := range slots {
		if c != nil {
			out = append(out, c)
		}
	}
	return out, nil
}

func (n *Normalizer) normalizeOne(ctx context.Context, doc models.Document) *credential.Credential {
	plain, err := n.decrypter.Decrypt(doc.DocData)
	if err != nil {
		n.skip(ctx, doc, ReasonDecrypt, err)
		return nil
	}
	content, err := jsonvalue.Parse([]byte(plain))
	if err != nil {
		n.skip(ctx, doc, ReasonParse, err)
		return nil
	}
	c, err := credential.New(
		doc.ID,
		doc.DocSubtype,
		credential.VCTypeFromSource(doc.ImportedFrom),
		credential.FormatJSON,
		content,
	)
	if err != nil {
		n.skip(ctx, doc, ReasonInvalid, err)
		return nil
	}
	return c
}

func (n *Normalizer) skip(ctx context.Context, doc models.Document, reason string, err error) {
	n.metrics.IncDocumentSkipped(reason)
	attrs := []any{
		"doc_id", doc.ID.String(),
		"user_id", doc.UserID.String(),
		"doc_subtype", doc.DocSubtype,
		"reason", reason,
	}
	if err != nil {
		attrs = append(attrs, "error", err)
	}
	n.logger.ErrorContext(ctx, "skipping unreadable document", attrs...)
}
