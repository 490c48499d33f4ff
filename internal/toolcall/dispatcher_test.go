package toolcall

import (
	"context"
	"encoding/json"
	"testing"

	"video-tutor/internal/platform/logger"
	"video-tutor/internal/platform/metrics"
	"video-tutor/internal/tutor"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testService() *tutor.Service {
	return tutor.NewService(tutor.NewCatalog([]tutor.Video{
		{
			ID:       "video_001",
			Title:    "Hukum Newton",
			Topics:   []string{"gaya", "gerak", "hukum newton", "inersia", "massa", "percepatan"},
			Keywords: []string{"newton", "dorong", "tarik"},
			URL:      "https://play.min.io/physics-videos/newton.mp4",
			Transcript: []tutor.Segment{
				{Start: 0, End: 10, Text: "Halo adik-adik"},
				{Start: 40, End: 50, Text: "Benda diam tetap diam"},
			},
		},
		{
			ID:       "video_002",
			Title:    "Gaya Gesek",
			Topics:   []string{"gesekan"},
			Keywords: []string{"kasar", "licin"},
			URL:      "https://play.min.io/physics-videos/gesek.mp4",
		},
	}))
}

type recordingPlayer struct {
	cmds []Command
}

func (p *recordingPlayer) Apply(_ context.Context, cmd Command) {
	p.cmds = append(p.cmds, cmd)
}

func decodeOutput(t *testing.T, s string) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal([]byte(s), &out))
	return out
}

func TestDispatch_SearchVideo(t *testing.T) {
	player := &recordingPlayer{}
	d := NewDispatcher(testService(), logger.Discard(), WithPlayer(player), WithMetrics(metrics.New()))

	res, err := d.Dispatch(context.Background(), Call{Name: NameSearchVideo, Arguments: `{"query":"newton"}`, CallID: "call_1"})
	require.NoError(t, err)

	assert.Equal(t, "call_1", res.CallID)
	out := decodeOutput(t, res.Output)
	assert.Equal(t, true, out["success"])
	assert.Equal(t, "video_001", out["video_id"])
	assert.Equal(t, "Hukum Newton", out["title"])
	assert.Equal(t, "Menemukan video: Hukum Newton. Video ini membahas tentang: gaya, gerak, hukum newton, inersia, massa", out["message"])
	assert.Greater(t, out["score"], float64(0))

	require.NotNil(t, res.Command)
	assert.Equal(t, CommandShow, res.Command.Kind)
	assert.Equal(t, 0, res.Command.Timestamp)
	require.NotNil(t, res.Command.Video)
	assert.Equal(t, tutor.VideoID("video_001"), res.Command.Video.ID)

	assert.Equal(t, tutor.VideoID("video_001"), d.CurrentVideo())
	require.Len(t, player.cmds, 1)
	assert.Equal(t, *res.Command, player.cmds[0])
}

func TestDispatch_SearchVideoNoMatch(t *testing.T) {
	d := NewDispatcher(testService(), logger.Discard())

	res, err := d.Dispatch(context.Background(), Call{Name: NameSearchVideo, Arguments: `{"query":"xyz123"}`})
	require.NoError(t, err)

	out := decodeOutput(t, res.Output)
	assert.Equal(t, false, out["success"])
	assert.Equal(t, "Tidak menemukan video yang relevan untuk: xyz123. Coba kata kunci lain.", out["message"])
	assert.Nil(t, res.Command)
	assert.Empty(t, d.CurrentVideo())
}

func TestDispatch_NavigateVideo(t *testing.T) {
	ctx := context.Background()

	t.Run("no video loaded", func(t *testing.T) {
		d := NewDispatcher(testService(), logger.Discard())
		res, err := d.Dispatch(ctx, Call{Name: NameNavigateVideo, Arguments: `{"timestamp":30}`})
		require.NoError(t, err)
		out := decodeOutput(t, res.Output)
		assert.Equal(t, true, out["success"])
		assert.Equal(t, "Video berpindah ke detik 30", out["message"])
		assert.Nil(t, res.Command)
	})

	t.Run("seek current", func(t *testing.T) {
		d := NewDispatcher(testService(), logger.Discard())
		_, err := d.Dispatch(ctx, Call{Name: NameSearchVideo, Arguments: `{"query":"newton"}`})
		require.NoError(t, err)

		res, err := d.Dispatch(ctx, Call{Name: NameNavigateVideo, Arguments: `{"timestamp":"45.9"}`})
		require.NoError(t, err)
		require.NotNil(t, res.Command)
		assert.Equal(t, Command{Kind: CommandSeek, Timestamp: 45}, *res.Command)
	})

	t.Run("switch video", func(t *testing.T) {
		d := NewDispatcher(testService(), logger.Discard())
		res, err := d.Dispatch(ctx, Call{Name: NameNavigateVideo, Arguments: `{"video_id":"video_002","timestamp":12}`})
		require.NoError(t, err)
		require.NotNil(t, res.Command)
		assert.Equal(t, CommandShow, res.Command.Kind)
		assert.Equal(t, 12, res.Command.Timestamp)
		assert.Equal(t, tutor.VideoID("video_002"), res.Command.Video.ID)
		assert.Equal(t, tutor.VideoID("video_002"), d.CurrentVideo())
	})

	t.Run("unknown video", func(t *testing.T) {
		d := NewDispatcher(testService(), logger.Discard())
		res, err := d.Dispatch(ctx, Call{Name: NameNavigateVideo, Arguments: `{"video_id":"video_999","timestamp":12}`})
		require.NoError(t, err)
		out := decodeOutput(t, res.Output)
		assert.Equal(t, false, out["success"])
		assert.Equal(t, "Video tidak ditemukan", out["message"])
		assert.Nil(t, res.Command)
	})
}

func TestDispatch_GetVideoContent(t *testing.T) {
	ctx := context.Background()

	t.Run("current video", func(t *testing.T) {
		d := NewDispatcher(testService(), logger.Discard())
		_, err := d.Dispatch(ctx, Call{Name: NameSearchVideo, Arguments: `{"query":"newton"}`})
		require.NoError(t, err)

		res, err := d.Dispatch(ctx, Call{Name: NameGetVideoContent, Arguments: `{"timestamp":45}`})
		require.NoError(t, err)

		out := decodeOutput(t, res.Output)
		assert.Equal(t, true, out["success"])
		assert.Equal(t, "video_001", out["video_id"])
		assert.Equal(t, "Hukum Newton", out["video_title"])
		assert.Equal(t, float64(45), out["timestamp"])
		assert.Equal(t, "[0:40-0:50] Benda diam tetap diam\n", out["content"])
		assert.Equal(t, "Konten video di detik 45: [0:40-0:50] Benda diam tetap diam\n", out["message"])
		assert.Len(t, out["segments"], 1)

		require.NotNil(t, res.Command)
		assert.Equal(t, Command{Kind: CommandSeek, Timestamp: 45}, *res.Command)
	})

	t.Run("no video loaded", func(t *testing.T) {
		d := NewDispatcher(testService(), logger.Discard())
		res, err := d.Dispatch(ctx, Call{Name: NameGetVideoContent, Arguments: `{"timestamp":45}`})
		require.NoError(t, err)
		out := decodeOutput(t, res.Output)
		assert.Equal(t, false, out["success"])
		assert.Equal(t, "Video tidak ditemukan", out["message"])
	})

	t.Run("empty transcript", func(t *testing.T) {
		d := NewDispatcher(testService(), logger.Discard())
		res, err := d.Dispatch(ctx, Call{Name: NameGetVideoContent, Arguments: `{"video_id":"video_002","timestamp":5}`})
		require.NoError(t, err)
		out := decodeOutput(t, res.Output)
		assert.Equal(t, true, out["success"])
		assert.Equal(t, tutor.NoContentText, out["content"])
		assert.Equal(t, "Konten video di detik 5: ", out["message"])
		assert.Contains(t, res.Output, `"segments":[]`)
		require.NotNil(t, res.Command)
		assert.Equal(t, CommandShow, res.Command.Kind)
		assert.Equal(t, tutor.VideoID("video_002"), d.CurrentVideo())
	})
}

func TestDispatch_MalformedArguments(t *testing.T) {
	d := NewDispatcher(testService(), logger.Discard())
	res, err := d.Dispatch(context.Background(), Call{Name: NameSearchVideo, Arguments: `{"query":`})
	require.NoError(t, err)

	out := decodeOutput(t, res.Output)
	assert.Equal(t, false, out["success"])
	assert.Nil(t, res.Command)
}

func TestDispatch_UnknownTool(t *testing.T) {
	d := NewDispatcher(testService(), logger.Discard())

	_, err := d.Dispatch(context.Background(), Call{Name: "play_music"})
	require.ErrorIs(t, err, ErrUnknownTool)

	out := decodeOutput(t, d.Handle(context.Background(), Call{Name: "play_music"}))
	assert.Equal(t, false, out["success"])
	assert.Equal(t, "Fungsi tidak dikenal: play_music", out["message"])
}

func TestTopicsPreview(t *testing.T) {
	assert.Equal(t, "", topicsPreview(nil, 5))
	assert.Equal(t, "a, b", topicsPreview([]string{"a", "b"}, 5))
	assert.Equal(t, "a, b", topicsPreview([]string{"a", "b", "c"}, 2))
}
