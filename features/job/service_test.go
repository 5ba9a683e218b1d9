package job

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRepo struct {
	jobs    map[string]*Job
	saved   []*Job
	deleted []string
}

func newFakeRepo() *fakeRepo { return &fakeRepo{jobs: map[string]*Job{}} }

func (f *fakeRepo) Save(_ context.Context, j *Job) error {
	f.saved = append(f.saved, j)
	return nil
}

func (f *fakeRepo) List(_ context.Context) ([]Job, error) {
	var out []Job
	for _, j := range f.jobs {
		out = append(out, *j)
	}
	return out, nil
}

func (f *fakeRepo) Get(_ context.Context, id string) (*Job, error) {
	j, ok := f.jobs[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return j, nil
}

func (f *fakeRepo) Delete(_ context.Context, id string) error {
	f.deleted = append(f.deleted, id)
	delete(f.jobs, id)
	return nil
}

func (f *fakeRepo) Count(_ context.Context) (int, error) { return len(f.jobs), nil }

type fakePublisher struct {
	topics []string
	bodies [][]byte
	err    error
}

func (f *fakePublisher) Publish(topic string, body []byte) error {
	if f.err != nil {
		return f.err
	}
	f.topics = append(f.topics, topic)
	f.bodies = append(f.bodies, body)
	return nil
}

func TestRetry_RepublishesAndDeletes(t *testing.T) {
	repo := newFakeRepo()
	repo.jobs["1"] = &Job{ID: "1", TaskID: "task-1", Payload: json.RawMessage(`{"task_id":"task-1"}`)}
	pub := &fakePublisher{}
	service := NewService(repo, pub)

	require.NoError(t, service.Retry(context.Background(), "1"))

	require.Len(t, pub.topics, 1)
	assert.Equal(t, "ocr.task", pub.topics[0])
	assert.JSONEq(t, `{"task_id":"task-1"}`, string(pub.bodies[0]))
	assert.Equal(t, []string{"1"}, repo.deleted)
}

func TestRetry_UnknownJob(t *testing.T) {
	service := NewService(newFakeRepo(), &fakePublisher{})

	err := service.Retry(context.Background(), "missing")
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestRetry_PublishFailureKeepsJob(t *testing.T) {
	repo := newFakeRepo()
	repo.jobs["1"] = &Job{ID: "1", Payload: json.RawMessage(`{}`)}
	service := NewService(repo, &fakePublisher{err: errors.New("nsqd down")})

	err := service.Retry(context.Background(), "1")

	require.Error(t, err)
	assert.Empty(t, repo.deleted)
	assert.Contains(t, repo.jobs, "1")
}

func TestArchive(t *testing.T) {
	repo := newFakeRepo()
	service := NewService(repo, &fakePublisher{})

	require.NoError(t, service.Archive(context.Background(), "task-1", "ocr.task", []byte(`{"a":1}`), "BackendError", "boom"))

	require.Len(t, repo.saved, 1)
	assert.Equal(t, "task-1", repo.saved[0].TaskID)
	assert.Equal(t, "BackendError", repo.saved[0].ErrorKind)
	assert.Equal(t, "boom", repo.saved[0].Error)
}
