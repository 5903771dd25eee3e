package hw

// MediaRef identifies a media item well enough to re-resolve it against a catalogue.
type MediaRef struct {
	Basename  string `json:"basename"`
	Title     string `json:"title"`
	Subtitle  string `json:"subtitle"`
	Folder    string `json:"folder"`
	Thumbnail string `json:"thumbnail"`
}

// QueueStatus is the persisted queue snapshot.
type QueueStatus struct {
	Elements []MediaRef `json:"elements"`
	Ordering []int      `json:"ordering"`
	Current  *int       `json:"current"`
	Shuffle  bool       `json:"shuffle"`
	Loop     bool       `json:"loop"`
}

// PlayerStatus is the persisted player snapshot.
type PlayerStatus struct {
	Media                  *MediaRef `json:"media"`
	CurrentVolume          int       `json:"current_volume"`
	CurrentAspectRatio     *string   `json:"current_aspect_ratio"`
	Time                   *int64    `json:"time"`
	State                  *int      `json:"state"`
	SelectedAudioSource    *int      `json:"selected_audio_source"`
	SelectedSubtitleSource *int      `json:"selected_subtitle_source"`
	Delay                  int64     `json:"delay"`
}

// Status is the whole persisted session document.
type Status struct {
	Autoplay bool         `json:"autoplay"`
	Queue    QueueStatus  `json:"queue"`
	Player   PlayerStatus `json:"player"`
}

// IntPtr returns a pointer to v.
func IntPtr(v int) *int {
	return &v
}
