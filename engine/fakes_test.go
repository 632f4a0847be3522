package engine

import (
	"context"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/yoloz/kska/natsclient"
)

type fakeMsg struct {
	jetstream.Msg
	subject string
	data    []byte
	header  nats.Header
	seq     uint64
	ts      time.Time

	mu    sync.Mutex
	acked bool
	naked bool
}

func newFakeMsg(subject, key, value string, seq uint64, ts time.Time) *fakeMsg {
	h := nats.Header{}
	if key != "" {
		h.Set(KeyHeader, key)
	}
	return &fakeMsg{subject: subject, data: []byte(value), header: h, seq: seq, ts: ts}
}

func (m *fakeMsg) Subject() string      { return m.subject }
func (m *fakeMsg) Data() []byte         { return m.data }
func (m *fakeMsg) Headers() nats.Header { return m.header }

func (m *fakeMsg) Metadata() (*jetstream.MsgMetadata, error) {
	return &jetstream.MsgMetadata{
		Sequence:  jetstream.SequencePair{Stream: m.seq, Consumer: m.seq},
		Timestamp: m.ts,
	}, nil
}

func (m *fakeMsg) Ack() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.acked = true
	return nil
}

func (m *fakeMsg) Nak() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.naked = true
	return nil
}

func (m *fakeMsg) state() (acked, naked bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.acked, m.naked
}

type fakeIter struct {
	jetstream.MessagesContext
	msgs    chan jetstream.Msg
	stopped chan struct{}
	once    sync.Once
}

func (it *fakeIter) Next() (jetstream.Msg, error) {
	select {
	case msg := <-it.msgs:
		return msg, nil
	case <-it.stopped:
		return nil, jetstream.ErrMsgIteratorClosed
	}
}

func (it *fakeIter) Stop() {
	it.once.Do(func() { close(it.stopped) })
}

type fakeConsumer struct {
	jetstream.Consumer
	iter *fakeIter
}

func (c *fakeConsumer) Messages(...jetstream.PullMessagesOpt) (jetstream.MessagesContext, error) {
	return c.iter, nil
}

type fakeEntry struct {
	jetstream.KeyValueEntry
	value []byte
	rev   uint64
}

func (e *fakeEntry) Value() []byte    { return e.value }
func (e *fakeEntry) Revision() uint64 { return e.rev }

type fakeBucket struct {
	jetstream.KeyValue
	name string

	mu   sync.Mutex
	data map[string][]byte
	rev  uint64
}

func (b *fakeBucket) Bucket() string { return b.name }

func (b *fakeBucket) Get(_ context.Context, key string) (jetstream.KeyValueEntry, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	v, ok := b.data[key]
	if !ok {
		return nil, jetstream.ErrKeyNotFound
	}
	return &fakeEntry{value: v, rev: b.rev}, nil
}

func (b *fakeBucket) Put(_ context.Context, key string, value []byte) (uint64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.rev++
	b.data[key] = value
	return b.rev, nil
}

func (b *fakeBucket) Delete(_ context.Context, key string, _ ...jetstream.KVDeleteOpt) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.data, key)
	return nil
}

type fakeClient struct {
	nc        *natsclient.Client
	streams   map[string]string
	iter      *fakeIter
	consumers []jetstream.ConsumerConfig
	buckets   map[string]*fakeBucket

	consumerErr error
	bucketErr   error
}

func newFakeClient(msgs ...jetstream.Msg) *fakeClient {
	nc, err := natsclient.NewClient("nats://unused:4222")
	if err != nil {
		panic(err)
	}
	ch := make(chan jetstream.Msg, len(msgs))
	for _, m := range msgs {
		ch <- m
	}
	return &fakeClient{
		nc:      nc,
		streams: map[string]string{"orders": "ORDERS", "profiles": "PROFILES"},
		iter:    &fakeIter{msgs: ch, stopped: make(chan struct{})},
		buckets: map[string]*fakeBucket{},
	}
}

func (c *fakeClient) StreamNameBySubject(_ context.Context, subject string) (string, error) {
	name, ok := c.streams[subject]
	if !ok {
		return "", jetstream.ErrStreamNotFound
	}
	return name, nil
}

func (c *fakeClient) CreateOrUpdateConsumer(
	_ context.Context, _ string, cfg jetstream.ConsumerConfig) (jetstream.Consumer, error) {
	if c.consumerErr != nil {
		return nil, c.consumerErr
	}
	c.consumers = append(c.consumers, cfg)
	return &fakeConsumer{iter: c.iter}, nil
}

func (c *fakeClient) CreateKeyValueBucket(_ context.Context, cfg jetstream.KeyValueConfig) (jetstream.KeyValue, error) {
	if c.bucketErr != nil {
		return nil, c.bucketErr
	}
	b, ok := c.buckets[cfg.Bucket]
	if !ok {
		b = &fakeBucket{name: cfg.Bucket, data: map[string][]byte{}}
		c.buckets[cfg.Bucket] = b
	}
	return b, nil
}

func (c *fakeClient) NewKVStore(bucket jetstream.KeyValue, opts ...func(*natsclient.KVOptions)) *natsclient.KVStore {
	return c.nc.NewKVStore(bucket, opts...)
}
