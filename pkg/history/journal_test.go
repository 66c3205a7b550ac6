package history

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	errs "autored/pkg/errors"
	"autored/pkg/logger"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestJournal(t *testing.T) *Journal {
	t.Helper()
	j := NewJournal(filepath.Join(t.TempDir(), "output", "history.json"), logger.NewNopLogger())
	clock := time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)
	j.now = func() time.Time {
		clock = clock.Add(time.Minute)
		return clock
	}
	return j
}

func TestEmptyJournal(t *testing.T) {
	j := newTestJournal(t)

	records, err := j.List()
	require.NoError(t, err)
	assert.Empty(t, records)

	_, err = os.Stat(j.Path())
	assert.True(t, os.IsNotExist(err))
}

func TestBeginFinish(t *testing.T) {
	j := newTestJournal(t)

	rec, err := j.Begin(SourceGenerated, "Golden hour", []string{"/out/a.png", "/out/b.png"})
	require.NoError(t, err)
	_, err = uuid.Parse(rec.ID)
	assert.NoError(t, err)
	assert.Equal(t, StatusRunning, rec.Status)

	// visible as running before it finishes
	records, err := j.List()
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, StatusRunning, records[0].Status)
	assert.Nil(t, records[0].FinishedAt)

	require.NoError(t, j.Finish(rec, nil))

	records, err = j.List()
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, StatusPublished, records[0].Status)
	assert.Equal(t, time.Minute, records[0].Duration())
}

func TestFinishWithPublishFailure(t *testing.T) {
	j := newTestJournal(t)
	rec, err := j.Begin(SourceManual, "T", []string{"a.png"})
	require.NoError(t, err)

	cause := errs.PublishStepTimeout(5, "fill title", errors.New("wait for title: timeout"))
	require.NoError(t, j.Finish(rec, cause))

	records, err := j.List()
	require.NoError(t, err)
	got := records[0]
	assert.Equal(t, StatusFailed, got.Status)
	assert.Equal(t, string(errs.ErrorTypePublishStepTimeout), got.ErrorType)
	assert.Equal(t, 5, got.Step)
	assert.Contains(t, got.Error, "fill title")
}

func TestLast(t *testing.T) {
	j := newTestJournal(t)
	for _, title := range []string{"one", "two", "three"} {
		rec, err := j.Begin(SourceVideo, title, nil)
		require.NoError(t, err)
		require.NoError(t, j.Finish(rec, nil))
	}

	last, err := j.Last(2)
	require.NoError(t, err)
	require.Len(t, last, 2)
	assert.Equal(t, "three", last[0].Title)
	assert.Equal(t, "two", last[1].Title)

	all, err := j.Last(0)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestCorruptJournal(t *testing.T) {
	j := newTestJournal(t)
	require.NoError(t, os.MkdirAll(filepath.Dir(j.Path()), 0755))
	require.NoError(t, os.WriteFile(j.Path(), []byte("{not json"), 0644))

	_, err := j.List()
	assert.Error(t, err)
	_, err = j.Begin(SourceManual, "T", nil)
	assert.Error(t, err, "a corrupt journal is never overwritten")
}

func TestRender(t *testing.T) {
	j := newTestJournal(t)
	ok, err := j.Begin(SourceGenerated, "Golden hour", []string{"/out/generated_1.png"})
	require.NoError(t, err)
	require.NoError(t, j.Finish(ok, nil))
	bad, err := j.Begin(SourceManual, "Broken", nil)
	require.NoError(t, err)
	require.NoError(t, j.Finish(bad, errs.LoginTimeout("wait for QR scan", nil)))

	records, err := j.Last(10)
	require.NoError(t, err)

	var buf bytes.Buffer
	Render(&buf, records)
	out := buf.String()
	assert.Contains(t, out, "Golden hour")
	assert.Contains(t, out, "generated_1.png")
	assert.Contains(t, out, "published")
	assert.Contains(t, out, "login_timeout")
	assert.Contains(t, out, "2 record(s)")

	buf.Reset()
	Render(&buf, nil)
	assert.Contains(t, buf.String(), "no publish attempts yet")
}
