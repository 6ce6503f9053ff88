package mongo

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/yoockh/techfinder/internal/models"
	"github.com/yoockh/techfinder/internal/repositories"
	"github.com/yoockh/techfinder/internal/utils"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	minBackoff = 500 * time.Millisecond
	maxBackoff = 30 * time.Second
)

// ProfileSource mirrors profile collections through change streams. All
// subscribers of a collection share one watcher; each change batch triggers
// a full reload so every delivery is a complete snapshot.
type ProfileSource struct {
	db  *mongo.Database
	log *logrus.Logger

	base   context.Context
	cancel context.CancelFunc

	mu    sync.Mutex
	feeds map[models.Category]*feed
}

var _ repositories.ProfileSource = (*ProfileSource)(nil)

func NewProfileSource(db *mongo.Database, log *logrus.Logger) *ProfileSource {
	if log == nil {
		log = logrus.New()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &ProfileSource{
		db:     db,
		log:    log,
		base:   ctx,
		cancel: cancel,
		feeds:  map[models.Category]*feed{},
	}
}

// Close stops every watcher. Subscribers receive no further deliveries.
func (s *ProfileSource) Close() {
	s.cancel()
	s.mu.Lock()
	defer s.mu.Unlock()
	for c, f := range s.feeds {
		f.stop()
		delete(s.feeds, c)
	}
}

func (s *ProfileSource) SubscribeCollection(ctx context.Context, category models.Category, h repositories.SnapshotHandler) (func(), error) {
	const op = "ProfileSource.SubscribeCollection"

	if !category.Valid() {
		return nil, utils.E(utils.CodeInvalidArgument, op, "unknown category", nil)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := s.base.Err(); err != nil {
		return nil, utils.E(utils.CodeUnavailable, op, "source closed", err)
	}

	s.mu.Lock()
	f, ok := s.feeds[category]
	if !ok {
		f = newFeed(s.base, category, s.db.Collection(category.String()), s.log)
		s.feeds[category] = f
		go f.run()
	}
	sub := f.add(h)
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			if f.remove(sub) == 0 && s.feeds[category] == f {
				f.stop()
				delete(s.feeds, category)
			}
		})
	}, nil
}

func (s *ProfileSource) GetDocument(ctx context.Context, category models.Category, id string) (models.Document, error) {
	var raw bson.M
	err := s.db.Collection(category.String()).FindOne(ctx, idFilter(id)).Decode(&raw)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.Document{}, utils.ErrNotFound
	}
	if err != nil {
		return models.Document{}, err
	}
	return toDocument(raw), nil
}

func (s *ProfileSource) UpdateDocument(ctx context.Context, category models.Category, id string, fields map[string]any) error {
	res, err := s.db.Collection(category.String()).UpdateOne(ctx,
		idFilter(id),
		bson.M{"$set": fields},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return utils.ErrNotFound
	}
	return nil
}

type feed struct {
	category models.Category
	col      *mongo.Collection
	log      *logrus.Logger

	ctx    context.Context
	cancel context.CancelFunc

	// watchFn is f.watch outside tests.
	watchFn func() (healthy bool, err error)
	retry   backoff

	mu     sync.Mutex
	subs   map[uint64]*subscriber
	nextID uint64
	last   []models.Document
	loaded bool
}

func newFeed(parent context.Context, category models.Category, col *mongo.Collection, log *logrus.Logger) *feed {
	ctx, cancel := context.WithCancel(parent)
	f := &feed{
		category: category,
		col:      col,
		log:      log,
		ctx:      ctx,
		cancel:   cancel,
		retry:    backoff{min: minBackoff, max: maxBackoff},
		subs:     map[uint64]*subscriber{},
	}
	f.watchFn = f.watch
	return f
}

func (f *feed) add(h repositories.SnapshotHandler) uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	sub := newSubscriber(h)
	f.subs[f.nextID] = sub
	if f.loaded {
		sub.pushDocs(f.last)
	}
	go sub.loop(f.ctx)
	return f.nextID
}

func (f *feed) remove(id uint64) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	if sub, ok := f.subs[id]; ok {
		sub.close()
		delete(f.subs, id)
	}
	return len(f.subs)
}

func (f *feed) stop() {
	f.cancel()
	f.mu.Lock()
	defer f.mu.Unlock()
	for id, sub := range f.subs {
		sub.close()
		delete(f.subs, id)
	}
}

func (f *feed) run() {
	for {
		healthy, err := f.watchFn()
		if f.ctx.Err() != nil {
			return
		}
		if healthy {
			f.retry.reset()
		}
		delay := f.retry.next()

		f.log.WithFields(logrus.Fields{
			"collection": f.category,
			"retry_in":   delay.String(),
		}).WithError(err).Warn("profile watch interrupted")
		f.publishErr(err)

		select {
		case <-f.ctx.Done():
			return
		case <-time.After(delay):
		}
	}
}

// backoff doubles from min up to max between failed watch attempts.
type backoff struct {
	min, max time.Duration
	cur      time.Duration
}

func (b *backoff) reset() { b.cur = 0 }

func (b *backoff) next() time.Duration {
	if b.cur < b.min {
		b.cur = b.min
	}
	d := b.cur
	if b.cur *= 2; b.cur > b.max {
		b.cur = b.max
	}
	return d
}

// watch opens the change stream before the initial load so no change made
// in between is missed. healthy reports whether the initial load succeeded.
func (f *feed) watch() (healthy bool, err error) {
	cs, err := f.col.Watch(f.ctx, mongo.Pipeline{}, options.ChangeStream().SetMaxAwaitTime(5*time.Second))
	if err != nil {
		return false, fmt.Errorf("open change stream: %w", err)
	}
	defer cs.Close(context.Background())

	if err := f.reload(); err != nil {
		return false, err
	}

	for cs.Next(f.ctx) {
		// collapse the rest of the batch into one reload
		for cs.RemainingBatchLength() > 0 && cs.Next(f.ctx) {
		}
		if err := f.reload(); err != nil {
			return true, err
		}
	}
	if err := cs.Err(); err != nil {
		return true, err
	}
	return true, errors.New("change stream closed")
}

func (f *feed) reload() error {
	cur, err := f.col.Find(f.ctx, bson.M{})
	if err != nil {
		return fmt.Errorf("load %s: %w", f.category, err)
	}
	defer cur.Close(f.ctx)

	var raws []bson.M
	if err := cur.All(f.ctx, &raws); err != nil {
		return fmt.Errorf("load %s: %w", f.category, err)
	}

	docs := make([]models.Document, 0, len(raws))
	for _, raw := range raws {
		docs = append(docs, toDocument(raw))
	}
	f.publish(docs)
	return nil
}

// publish records docs as the latest snapshot and hands it to every
// subscriber.
func (f *feed) publish(docs []models.Document) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.last = docs
	f.loaded = true
	for _, sub := range f.subs {
		sub.pushDocs(docs)
	}
}

func (f *feed) publishErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, sub := range f.subs {
		sub.pushErr(err)
	}
}

// subscriber delivers on its own goroutine so a slow handler never stalls
// the watcher. Pending snapshots are conflated: only the newest is delivered.
type subscriber struct {
	h    repositories.SnapshotHandler
	wake chan struct{}
	done chan struct{}
	once sync.Once

	mu      sync.Mutex
	docs    []models.Document
	hasDocs bool
	err     error
}

func newSubscriber(h repositories.SnapshotHandler) *subscriber {
	return &subscriber{
		h:    h,
		wake: make(chan struct{}, 1),
		done: make(chan struct{}),
	}
}

func (s *subscriber) pushDocs(docs []models.Document) {
	s.mu.Lock()
	s.docs, s.hasDocs = docs, true
	s.mu.Unlock()
	s.signal()
}

func (s *subscriber) pushErr(err error) {
	s.mu.Lock()
	s.err = err
	s.mu.Unlock()
	s.signal()
}

func (s *subscriber) signal() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *subscriber) close() {
	s.once.Do(func() { close(s.done) })
}

func (s *subscriber) loop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.done:
			return
		case <-s.wake:
		}

		s.mu.Lock()
		docs, hasDocs, err := s.docs, s.hasDocs, s.err
		s.docs, s.hasDocs, s.err = nil, false, nil
		s.mu.Unlock()

		if err != nil && s.h.OnError != nil {
			s.h.OnError(err)
		}
		if hasDocs && s.h.OnSnapshot != nil {
			s.h.OnSnapshot(docs)
		}
	}
}

// idFilter matches both string ids and ObjectIDs given as hex.
func idFilter(id string) bson.M {
	if oid, err := primitive.ObjectIDFromHex(id); err == nil {
		return bson.M{"_id": bson.M{"$in": bson.A{oid, id}}}
	}
	return bson.M{"_id": id}
}

func toDocument(raw bson.M) models.Document {
	doc := models.Document{Fields: make(map[string]any, len(raw))}
	for k, v := range raw {
		if k == "_id" {
			doc.ID = idString(v)
			continue
		}
		doc.Fields[k] = plain(v)
	}
	return doc
}

func idString(v any) string {
	switch t := v.(type) {
	case primitive.ObjectID:
		return t.Hex()
	case string:
		return t
	default:
		return fmt.Sprint(v)
	}
}

// plain converts driver container types to plain maps and slices.
func plain(v any) any {
	switch t := v.(type) {
	case bson.M:
		out := make(map[string]any, len(t))
		for k, item := range t {
			out[k] = plain(item)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, item := range t {
			out[k] = plain(item)
		}
		return out
	case bson.D:
		out := make(map[string]any, len(t))
		for _, e := range t {
			out[e.Key] = plain(e.Value)
		}
		return out
	case bson.A:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = plain(item)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = plain(item)
		}
		return out
	case primitive.ObjectID:
		return t.Hex()
	case primitive.DateTime:
		return t.Time()
	default:
		return v
	}
}
