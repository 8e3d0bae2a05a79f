// Package service implements the Submit and Retrieve operations behind the
// HTTP surface: it hands uploads to the transform pool, stores the result, and
// fans the new artifact out to the optional sinks.
package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/JakeFAU/bitcrush/internal/artifact"
	"github.com/JakeFAU/bitcrush/internal/clock/system"
	"github.com/JakeFAU/bitcrush/internal/metrics"
)

// ErrUnavailable reports that no worker accepted or finished the transform
// before the caller gave up.
var ErrUnavailable = errors.New("transform queue busy")

// DefaultSinkTimeout bounds each ledger, archive and publish call.
const DefaultSinkTimeout = 10 * time.Second

// Sink labels for metrics and logs.
const (
	SinkLedger  = "ledger"
	SinkArchive = "archive"
	SinkPublish = "publish"
)

// Enqueuer accepts transform tasks. The dispatcher satisfies it.
type Enqueuer interface {
	Enqueue(ctx context.Context, task artifact.Task) error
}

// Service coordinates uploads and lookups.
type Service struct {
	enqueuer  Enqueuer
	store     artifact.Store
	ids       artifact.IDGenerator
	hasher    artifact.Hasher
	clock     artifact.Clock
	ledger    artifact.Ledger
	archive   artifact.BlobStore
	publisher artifact.Publisher
	topic     string
	prefix    string
	logger    *zap.Logger
	tracer    trace.Tracer

	sinkTimeout time.Duration
	sinks       sync.WaitGroup
}

// Option customizes a Service.
type Option func(*Service)

// WithHasher sets the source fingerprint function.
func WithHasher(h artifact.Hasher) Option {
	return func(s *Service) { s.hasher = h }
}

// WithClock overrides the time source used for records and events.
func WithClock(c artifact.Clock) Option {
	return func(s *Service) { s.clock = c }
}

// WithLedger records every stored artifact in l.
func WithLedger(l artifact.Ledger) Option {
	return func(s *Service) { s.ledger = l }
}

// WithArchive exports every stored artifact to b under prefix.
func WithArchive(b artifact.BlobStore, prefix string) Option {
	return func(s *Service) {
		s.archive = b
		s.prefix = strings.Trim(prefix, "/")
	}
}

// WithPublisher announces every stored artifact on topic.
func WithPublisher(p artifact.Publisher, topic string) Option {
	return func(s *Service) {
		s.publisher = p
		s.topic = topic
	}
}

// WithSinkTimeout bounds each post-insert sink call. Non-positive values keep
// DefaultSinkTimeout.
func WithSinkTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.sinkTimeout = d
		}
	}
}

// WithLogger sets the service logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// New constructs a Service. The enqueuer, store and id generator are required.
func New(enqueuer Enqueuer, store artifact.Store, ids artifact.IDGenerator, opts ...Option) (*Service, error) {
	if enqueuer == nil {
		return nil, errors.New("enqueuer is required")
	}
	if store == nil {
		return nil, errors.New("store is required")
	}
	if ids == nil {
		return nil, errors.New("id generator is required")
	}
	s := &Service{
		enqueuer: enqueuer,
		store:    store,
		ids:      ids,
		clock:    system.New(),
		logger:   zap.NewNop(),
		tracer:   otel.Tracer("github.com/JakeFAU/bitcrush/internal/service"),

		sinkTimeout: DefaultSinkTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Submit crushes input and stores the result, returning the new id. The store
// is untouched unless the returned error is nil. Sinks are notified in the
// background after the id is minted; Wait drains them.
func (s *Service) Submit(ctx context.Context, input []byte) (artifact.ID, error) {
	ctx, span := s.tracer.Start(ctx, "bitcrush.submit",
		trace.WithAttributes(attribute.Int("bitcrush.input_bytes", len(input))))
	defer span.End()

	id, err := s.submit(ctx, span, input)
	metrics.ObserveSubmission(outcome(err))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}
	span.SetAttributes(attribute.String("bitcrush.id", id.String()))
	return id, nil
}

func (s *Service) submit(ctx context.Context, span trace.Span, input []byte) (artifact.ID, error) {
	if len(input) == 0 {
		return "", fmt.Errorf("empty input: %w", artifact.ErrDecode)
	}
	sourceType := mimetype.Detect(input).String()
	span.SetAttributes(attribute.String("bitcrush.source_type", sourceType))
	if !strings.HasPrefix(sourceType, "image/") {
		return "", fmt.Errorf("unsupported upload type %s: %w", sourceType, artifact.ErrDecode)
	}

	results := make(chan artifact.Result, 1)
	task := artifact.Task{Input: input, SourceType: sourceType, Result: results}
	if err := s.enqueuer.Enqueue(ctx, task); err != nil {
		return "", fmt.Errorf("%w: %w", ErrUnavailable, err)
	}

	var res artifact.Result
	select {
	case <-ctx.Done():
		return "", fmt.Errorf("%w: waiting for transform: %w", ErrUnavailable, ctx.Err())
	case res = <-results:
	}
	if res.Err != nil {
		return "", fmt.Errorf("transform: %w", res.Err)
	}

	id := s.ids.NewID()
	s.store.Insert(id, res.Artifact)
	metrics.SetStoreEntries(s.store.Len())
	metrics.ObserveArtifact(res.Artifact.Len())
	s.logger.Info("artifact stored",
		zap.String("id", id.String()),
		zap.String("source_type", sourceType),
		zap.Int("width", res.Bounds.Dx()),
		zap.Int("height", res.Bounds.Dy()),
		zap.Int("bytes", res.Artifact.Len()),
		zap.Duration("transform", res.Duration),
	)

	if s.ledger != nil || s.archive != nil || s.publisher != nil {
		s.sinks.Add(1)
		go func() {
			defer s.sinks.Done()
			s.fanOut(context.WithoutCancel(ctx), id, input, sourceType, res)
		}()
	}
	return id, nil
}

// Wait blocks until every background sink call has finished or ctx is done.
func (s *Service) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.sinks.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("waiting for sinks: %w", ctx.Err())
	}
}

// fanOut notifies the optional sinks, each under its own deadline. Failures
// are logged and counted only.
func (s *Service) fanOut(ctx context.Context, id artifact.ID, input []byte, sourceType string, res artifact.Result) {
	now := s.clock.Now().UTC()
	hash := s.fingerprint(input)

	if s.ledger != nil {
		rec := artifact.SubmissionRecord{
			ID:          id,
			SourceHash:  hash,
			SourceType:  sourceType,
			Width:       res.Bounds.Dx(),
			Height:      res.Bounds.Dy(),
			OutputBytes: res.Artifact.Len(),
			CreatedAt:   now,
		}
		s.runSink(ctx, SinkLedger, id, func(ctx context.Context) error {
			return s.ledger.RecordSubmission(ctx, rec)
		})
	}

	if s.archive != nil {
		obj := artifact.Object{
			Path:        ArchivePath(s.prefix, id),
			ContentType: res.Artifact.ContentType,
			Metadata:    archiveMetadata(id, hash, sourceType),
			Data:        bytes.NewReader(res.Artifact.Data),
		}
		s.runSink(ctx, SinkArchive, id, func(ctx context.Context) error {
			uri, err := s.archive.PutObject(ctx, obj)
			if err == nil {
				s.logger.Debug("artifact archived", zap.String("id", id.String()), zap.String("uri", uri))
			}
			return err
		})
	}

	if s.publisher != nil {
		evt := artifact.Created{
			ID:          id,
			Src:         artifact.Src(id),
			ContentType: res.Artifact.ContentType,
			Bytes:       res.Artifact.Len(),
			SourceHash:  hash,
			CreatedAt:   now,
		}
		s.runSink(ctx, SinkPublish, id, func(ctx context.Context) error {
			_, err := s.publisher.Publish(ctx, s.topic, evt)
			return err
		})
	}
}

func (s *Service) runSink(ctx context.Context, sink string, id artifact.ID, call func(context.Context) error) {
	ctx, cancel := context.WithTimeout(ctx, s.sinkTimeout)
	defer cancel()
	if err := call(ctx); err != nil {
		s.sinkFailed(sink, id, err)
	}
}

func (s *Service) fingerprint(input []byte) string {
	if s.hasher == nil {
		return ""
	}
	return s.hasher.Fingerprint(input)
}

// archiveMetadata is attached to exported objects. Empty values are left out.
func archiveMetadata(id artifact.ID, hash, sourceType string) map[string]string {
	meta := map[string]string{"artifact_id": id.String()}
	if hash != "" {
		meta["source_hash"] = hash
	}
	if sourceType != "" {
		meta["source_type"] = sourceType
	}
	return meta
}

func (s *Service) sinkFailed(sink string, id artifact.ID, err error) {
	metrics.ObserveSinkFailure(sink)
	s.logger.Warn("post-insert sink failed",
		zap.String("sink", sink),
		zap.String("id", id.String()),
		zap.Error(err),
	)
}

// Retrieve resolves a public token such as "<id>.jpg" to its artifact.
func (s *Service) Retrieve(token string) (artifact.Artifact, error) {
	raw, err := artifact.IDFromToken(token)
	if err != nil {
		return artifact.Artifact{}, err
	}
	id, err := s.ids.Parse(raw)
	if err != nil {
		return artifact.Artifact{}, err
	}
	a, ok := s.store.Lookup(id)
	if !ok {
		return artifact.Artifact{}, fmt.Errorf("lookup %s: %w", id, artifact.ErrNotFound)
	}
	return a, nil
}

// Len reports how many artifacts are stored.
func (s *Service) Len() int {
	return s.store.Len()
}

// ArchivePath is the object path an artifact is exported under.
func ArchivePath(prefix string, id artifact.ID) string {
	name := id.String() + artifact.DisplayExtension
	if prefix == "" {
		return name
	}
	return prefix + "/" + name
}

func outcome(err error) string {
	switch {
	case err == nil:
		return metrics.OutcomeStored
	case errors.Is(err, artifact.ErrDecode):
		return metrics.OutcomeDecodeError
	case errors.Is(err, artifact.ErrTooLarge):
		return metrics.OutcomeTooLarge
	case errors.Is(err, artifact.ErrEncode):
		return metrics.OutcomeEncodeError
	case errors.Is(err, context.Canceled):
		return metrics.OutcomeCanceled
	case errors.Is(err, ErrUnavailable):
		return metrics.OutcomeUnavailable
	default:
		return metrics.OutcomeInternalFail
	}
}
