package agent

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultCatalogHasAgent001(t *testing.T) {
	c, err := NewCatalog(context.Background(), "", "")
	require.NoError(t, err)
	defer c.Close()

	a, err := c.Get(context.Background(), "agent_001")
	require.NoError(t, err)
	assert.Equal(t, "Test Agent", a.Name)
	assert.Equal(t, "gpt-4o-mini", a.LLMModelID)
	assert.Equal(t, "eleven_flash_v2_5", a.TTSModelID)
	assert.Equal(t, "nova-3", a.STTModelID)
	assert.Equal(t, "nPczCjzI2devNBz1zQrb", a.VoiceID)
}

func TestCatalogGetUnknown(t *testing.T) {
	c := NewInMemoryCatalog(DefaultAgents()...)
	_, err := c.Get(context.Background(), "agent_999")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "agents.yaml")
	doc := `agents:
  - id: sales
    name: Sales
    system_prompt: Speak like a helpful salesperson.
    llm_model_id: gpt-4o-mini
    tts_model_id: eleven_flash_v2_5
    stt_model_id: nova-3
    voice_id: v1
  - id: direct
    name: Direct
    system_prompt: Provide short, direct answers.
    llm_model_id: gpt-4o
    tts_model_id: eleven_flash_v2_5
    stt_model_id: nova-3
    voice_id: v2
`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o600))

	c, err := NewCatalog(context.Background(), "", path)
	require.NoError(t, err)

	list, err := c.List(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "direct", list[0].ID)
	assert.Equal(t, "sales", list[1].ID)

	a, err := c.Get(context.Background(), "sales")
	require.NoError(t, err)
	assert.Equal(t, "Speak like a helpful salesperson.", a.SystemPrompt)
	assert.Equal(t, "v1", a.VoiceID)
}

func TestParseAgentsRequiresID(t *testing.T) {
	_, err := parseAgents([]byte("agents:\n  - name: nameless\n"))
	require.Error(t, err)
}

func TestLoadFileMissing(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

type recordingUpserter struct {
	got []Agent
	err error
}

func (r *recordingUpserter) Upsert(_ context.Context, a Agent) error {
	if r.err != nil {
		return r.err
	}
	r.got = append(r.got, a)
	return nil
}

func TestSeedFromUpsertsEveryAgent(t *testing.T) {
	src := NewInMemoryCatalog(
		Agent{ID: "b", Name: "B"},
		Agent{ID: "a", Name: "A"},
	)
	dst := &recordingUpserter{}

	require.NoError(t, seedFrom(context.Background(), dst, src))
	require.Len(t, dst.got, 2)
	assert.Equal(t, "a", dst.got[0].ID)
	assert.Equal(t, "b", dst.got[1].ID)
}

func TestSeedFromStopsOnUpsertError(t *testing.T) {
	src := NewInMemoryCatalog(Agent{ID: "a"})
	dst := &recordingUpserter{err: errors.New("conn reset")}

	err := seedFrom(context.Background(), dst, src)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "seed agents file")
}

func TestQueryErrorMapsNoRowsToNotFound(t *testing.T) {
	err := queryError("agent_404", pgx.ErrNoRows)
	require.ErrorIs(t, err, ErrNotFound)
	assert.Contains(t, err.Error(), "agent_404")

	other := queryError("agent_001", errors.New("timeout"))
	require.Error(t, other)
	assert.NotErrorIs(t, other, ErrNotFound)
	assert.Contains(t, other.Error(), "timeout")
}

func TestPostgresCatalogRoundTrip(t *testing.T) {
	url := os.Getenv("AGENT_TEST_DATABASE_URL")
	if url == "" {
		t.Skip("AGENT_TEST_DATABASE_URL not set")
	}
	ctx := context.Background()

	c, err := NewPostgresCatalog(ctx, url, DefaultAgents())
	require.NoError(t, err)
	defer c.Close()

	id := "test_" + uuid.NewString()
	require.NoError(t, c.Upsert(ctx, Agent{ID: id, Name: "Temp", SystemPrompt: "p", VoiceID: "v"}))
	require.NoError(t, c.Upsert(ctx, Agent{ID: id, Name: "Renamed", SystemPrompt: "p", VoiceID: "v"}))

	got, err := c.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", got.Name)

	list, err := c.List(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, list)

	_, err = c.Get(ctx, "missing_"+uuid.NewString())
	require.ErrorIs(t, err, ErrNotFound)
}
