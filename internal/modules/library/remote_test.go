package library

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func catalogueServer(t *testing.T, aliveAfter int32) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	root := NewFolder(".")
	m := NewMedia(".", "3. Title (Director, 2001).mp4")
	m.Duration = 90
	m.VideoCodec = "h264"
	m.SubtitleSources = []SubtitleSource{{Kind: SubtitleTrack, Index: 2, Language: "fre"}, {Kind: SubtitleFile, Basename: "x.fr.srt", Language: "fr"}}
	root.AddMedia(m)
	root.AddSubfolder(NewSubfolder("Sub dir"))
	sub := NewFolder("Sub dir")
	sub.AddMedia(NewMedia("Sub dir", "b.mkv"))
	sub.AddPlaylist(&Playlist{Basename: "p.playlist", Elements: []string{"b.mkv"}})

	var hits atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/library/alive", func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) <= aliveAfter {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte("YES"))
	})
	mux.HandleFunc("/library/hierarchy.json", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(Hierarchy{Root: "/srv", Folders: []HierarchyEntry{{Path: ".", Medias: 1}, {Path: "Sub dir", Medias: 1}}})
	})
	mux.HandleFunc("/library/", func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/library/index.json":
			_ = json.NewEncoder(w).Encode(NewFolderDoc(root))
		case "/library/Sub dir/index.json":
			_ = json.NewEncoder(w).Encode(NewFolderDoc(sub))
		default:
			http.NotFound(w, r)
		}
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, &hits
}

func TestRemoteFetch(t *testing.T) {
	srv, _ := catalogueServer(t, 0)
	fetcher, err := NewRemoteFetcher(nil, RemoteConfig{BaseURL: srv.URL + "/library"}, srv.Client())
	require.NoError(t, err)

	var mu sync.Mutex
	last, totals := 0, map[int]bool{}
	fetcher.OnProgress(func(done, total int) {
		mu.Lock()
		defer mu.Unlock()
		totals[total] = true
		last = max(last, done)
	})
	idx, err := fetcher.Fetch(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, last)
	require.Equal(t, map[int]bool{2: true}, totals)
	require.Equal(t, []string{".", "Sub dir"}, idx.Paths())

	m, ok := idx.Media("3. Title (Director, 2001).mp4")
	require.True(t, ok)
	require.Equal(t, "Title", m.Title)
	require.Equal(t, 3, m.Counter)
	require.Equal(t, 2001, m.Year)
	require.Len(t, m.SubtitleSources, 2)
	require.Equal(t, 2, m.SubtitleSources[0].Index)
	require.Equal(t, "x.fr.srt", m.SubtitleSources[1].Basename)

	pl, ok := idx.Playlist("Sub dir/p.playlist")
	require.True(t, ok)
	require.Len(t, idx.Resolve(pl), 1)
}

func TestRemoteWaitAliveRetries(t *testing.T) {
	srv, hits := catalogueServer(t, 2)
	fetcher, err := NewRemoteFetcher(nil, RemoteConfig{BaseURL: srv.URL + "/library/", RetryDelay: time.Millisecond}, srv.Client())
	require.NoError(t, err)
	require.NoError(t, fetcher.WaitAlive(context.Background()))
	require.Equal(t, int32(3), hits.Load())
}

func TestRemoteWaitAliveGivesUp(t *testing.T) {
	srv, _ := catalogueServer(t, 10)
	fetcher, err := NewRemoteFetcher(nil, RemoteConfig{BaseURL: srv.URL + "/library/", RetryDelay: time.Millisecond}, srv.Client())
	require.NoError(t, err)
	_, err = fetcher.Fetch(context.Background())
	require.Error(t, err)
}
