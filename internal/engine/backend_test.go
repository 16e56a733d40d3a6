package engine

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/celerix-dev/celerix-passport/internal/config"
	"github.com/celerix-dev/celerix-passport/pkg/passport"
)

// BackendSuite runs the same contract checks against every local backend.
type BackendSuite struct {
	suite.Suite
	open    func(t *testing.T, codec Codec) Backend
	backend Backend
}

func TestFileBackend(t *testing.T) {
	suite.Run(t, &BackendSuite{open: func(t *testing.T, codec Codec) Backend {
		p, err := NewPersistence(t.TempDir(), codec)
		require.NoError(t, err)
		return p
	}})
}

func TestSQLiteBackend(t *testing.T) {
	suite.Run(t, &BackendSuite{open: func(t *testing.T, codec Codec) Backend {
		b, err := OpenSQLite(filepath.Join(t.TempDir(), "passports.db"), codec)
		require.NoError(t, err)
		return b
	}})
}

func (s *BackendSuite) SetupTest() {
	s.backend = s.open(s.T(), Codec{Encoding: EncodingText})
}

func (s *BackendSuite) TearDownTest() {
	s.NoError(s.backend.Close())
}

func (s *BackendSuite) TestSaveAndLoad() {
	ctx := context.Background()
	s.Require().NoError(s.backend.Save(ctx, "rec-1", sampleSnapshot()))

	all, err := s.backend.LoadAll(ctx)
	s.Require().NoError(err)
	s.Equal(map[string]passport.Snapshot{"rec-1": sampleSnapshot()}, all)
}

func (s *BackendSuite) TestSaveReplaces() {
	ctx := context.Background()
	snap := sampleSnapshot()
	s.Require().NoError(s.backend.Save(ctx, "rec-1", snap))

	snap.Active = false
	s.Require().NoError(s.backend.Save(ctx, "rec-1", snap))

	all, err := s.backend.LoadAll(ctx)
	s.Require().NoError(err)
	s.Len(all, 1)
	s.False(all["rec-1"].Active)
}

func (s *BackendSuite) TestEmpty() {
	all, err := s.backend.LoadAll(context.Background())
	s.Require().NoError(err)
	s.Empty(all)
}

func (s *BackendSuite) TestRejectsEmptyID() {
	err := s.backend.Save(context.Background(), "", sampleSnapshot())
	s.ErrorIs(err, ErrInvalidRecordID)
}

func (s *BackendSuite) TestTextCodecRejectsRawBytes() {
	snap := sampleSnapshot()
	snap.Surname = "\xc3\x28"
	err := s.backend.Save(context.Background(), "rec-2", snap)
	s.ErrorIs(err, ErrNotText)
}

func (s *BackendSuite) TestEngineOnBackend() {
	ctx := context.Background()
	e, err := New(ctx, s.backend)
	s.Require().NoError(err)

	id, err := e.Deploy(ctx, owner, ivanov())
	s.Require().NoError(err)
	s.Require().NoError(e.Deactivate(ctx, id, owner))

	reloaded, err := New(ctx, s.backend)
	s.Require().NoError(err)
	active, err := reloaded.IsActive(ctx, id)
	s.Require().NoError(err)
	s.False(active)
	meta, err := reloaded.Metadata(ctx, id, owner)
	s.Require().NoError(err)
	s.Equal(ivanov().Metadata, meta)
}

func TestPersistence_RejectsPathTraversal(t *testing.T) {
	p, err := NewPersistence(t.TempDir(), Codec{})
	require.NoError(t, err)

	for _, id := range []string{"../escape", "a/b", ".hidden"} {
		err := p.Save(context.Background(), id, sampleSnapshot())
		assert.ErrorIs(t, err, ErrInvalidRecordID, "id %q", id)
	}
}

func TestPersistence_SkipsCorruptFiles(t *testing.T) {
	dir := t.TempDir()
	p, err := NewPersistence(dir, Codec{})
	require.NoError(t, err)

	require.NoError(t, p.Save(context.Background(), "good", sampleSnapshot()))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.json"), []byte("{not json"), 0600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0600))

	all, err := p.LoadAll(context.Background())
	require.NoError(t, err)
	assert.Len(t, all, 1)
	assert.Contains(t, all, "good")

	// no temp files left behind
	_, err = os.Stat(filepath.Join(dir, "good.json.tmp"))
	assert.True(t, os.IsNotExist(err))
}

func TestEngine_BackendSkipsUseInjectedLogger(t *testing.T) {
	ctx := context.Background()

	dir := t.TempDir()
	file, err := NewPersistence(dir, Codec{})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.json"), []byte("{not json"), 0600))

	db, err := OpenSQLite(filepath.Join(t.TempDir(), "passports.db"), Codec{})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	_, err = db.db.ExecContext(ctx, `INSERT INTO passports (id, doc, updated_at) VALUES ('bad', 'garbage', 0)`)
	require.NoError(t, err)

	for name, backend := range map[string]Backend{"file": file, "sqlite": db} {
		t.Run(name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := slog.New(slog.NewTextHandler(&buf, nil))

			e, err := New(ctx, backend, WithLogger(logger))
			require.NoError(t, err)
			assert.Equal(t, 0, e.Len())
			assert.Contains(t, buf.String(), "could not decode passport")
		})
	}
}

func TestMigrate(t *testing.T) {
	ctx := context.Background()
	src, err := NewPersistence(t.TempDir(), Codec{Encoding: EncodingText})
	require.NoError(t, err)
	dst, err := OpenSQLite(filepath.Join(t.TempDir(), "dst.db"), Codec{Encoding: EncodingBytes})
	require.NoError(t, err)
	defer dst.Close()

	for _, id := range []string{"b", "a", "c"} {
		require.NoError(t, src.Save(ctx, id, sampleSnapshot()))
	}

	n, err := Migrate(ctx, src, dst)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	all, err := dst.LoadAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)
	assert.Equal(t, sampleSnapshot(), all["a"])
}

func TestOpenBackend(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	b, err := OpenBackend(ctx, config.Config{Backend: config.BackendFile, DataDir: dir, FieldEncoding: "text"})
	require.NoError(t, err)
	assert.IsType(t, &Persistence{}, b)

	b, err = OpenBackend(ctx, config.Config{Backend: config.BackendSQLite, DataDir: dir, FieldEncoding: "bytes"})
	require.NoError(t, err)
	assert.IsType(t, &SQLiteBackend{}, b)
	require.NoError(t, b.Close())

	_, err = OpenBackend(ctx, config.Config{Backend: "tape", FieldEncoding: "text"})
	require.Error(t, err)

	_, err = OpenBackend(ctx, config.Config{Backend: config.BackendFile, DataDir: dir, FieldEncoding: "hex"})
	require.Error(t, err)

	assert.Len(t, Options(config.Config{TrackAssets: true}), 1)
	assert.Empty(t, Options(config.Config{}))
}
