package renderervlc

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/mikey-austin/homewatch/internal/modules/renderer_core"
	"github.com/mikey-austin/homewatch/internal/ports"
)

// Driver implements renderercore.Driver for VLC via HTTP RC.
type Driver struct {
	baseURL  string
	http     *http.Client
	password string
}

var _ renderercore.Driver = (*Driver)(nil)

// NewDriver creates a VLC HTTP RC driver. VLC only checks the password.
func NewDriver(baseURL string, password string, timeout time.Duration) (*Driver, error) {
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		return nil, errors.New("base_url required")
	}
	if !strings.Contains(baseURL, "://") {
		baseURL = "http://" + baseURL
	}
	if timeout == 0 {
		timeout = 5 * time.Second
	}
	return &Driver{
		baseURL:  strings.TrimRight(baseURL, "/"),
		http:     &http.Client{Timeout: timeout},
		password: password,
	}, nil
}

func (d *Driver) Open(uri string) error {
	if uri == "" {
		return errors.New("uri required")
	}
	_, _ = d.command("pl_stop", nil)
	_, _ = d.command("pl_empty", nil)
	_, err := d.command("in_play", url.Values{"input": []string{uri}})
	return err
}

func (d *Driver) Play() error {
	_, err := d.command("pl_play", nil)
	return err
}

func (d *Driver) TogglePause() error {
	_, err := d.command("pl_pause", nil)
	return err
}

func (d *Driver) Stop() error {
	_, err := d.command("pl_stop", nil)
	return err
}

func (d *Driver) Seek(ms int64) error {
	_, err := d.command("seek", vals(strconv.FormatInt(max(ms, 0)/1000, 10)))
	return err
}

// SetVolume maps 0-100 onto VLC's 0-256 nominal scale.
func (d *Driver) SetVolume(volume int) error {
	volume = min(max(volume, 0), 100)
	level := (volume*256 + 50) / 100
	_, err := d.command("volume", vals(strconv.Itoa(level)))
	return err
}

func (d *Driver) SetAspectRatio(ratio string) error {
	if ratio == "" {
		ratio = "default"
	}
	_, err := d.command("aspectratio", vals(ratio))
	return err
}

func (d *Driver) SelectAudioTrack(index int) error {
	return d.selectTrack("audio_track", "audio", index)
}

func (d *Driver) SelectSubtitleTrack(index int) error {
	return d.selectTrack("subtitle_track", "subtitle", index)
}

func (d *Driver) selectTrack(command string, kind string, index int) error {
	id := -1
	if index >= 0 {
		id = index
		if st, err := d.status(); err == nil {
			if ids := st.streams(kind); index < len(ids) {
				id = ids[index]
			}
		}
	}
	_, err := d.command(command, vals(strconv.Itoa(id)))
	return err
}

func (d *Driver) AddSubtitleFile(uri string) error {
	_, err := d.command("addsubtitle", vals(uri))
	return err
}

func (d *Driver) SetSubtitleDelay(ms int64) error {
	seconds := strconv.FormatFloat(float64(ms)/1000, 'f', 3, 64)
	_, err := d.command("subdelay", vals(seconds))
	return err
}

func (d *Driver) Status() (renderercore.Status, error) {
	st, err := d.status()
	if err != nil {
		return renderercore.Status{}, err
	}
	out := renderercore.Status{
		State:      translateState(st.State),
		PositionMS: st.Time * 1000,
		DurationMS: st.Length * 1000,
		MediaID:    strconv.FormatInt(st.CurrentPlID, 10),
	}
	if st.Position > 0 && st.Length > 0 {
		out.PositionMS = int64(st.Position * float64(st.Length) * 1000)
	}
	return out, nil
}

// Close leaves VLC running; the HTTP interface holds no session.
func (d *Driver) Close() error {
	d.http.CloseIdleConnections()
	return nil
}

func translateState(state string) ports.EngineState {
	switch state {
	case "playing":
		return ports.StatePlaying
	case "paused":
		return ports.StatePaused
	case "stopped":
		return ports.StateStopped
	case "opening":
		return ports.StateOpening
	case "buffering":
		return ports.StateBuffering
	case "error":
		return ports.StateError
	default:
		return ports.StateIdle
	}
}

type vlcStatus struct {
	State       string  `json:"state"`
	Time        int64   `json:"time"`
	Length      int64   `json:"length"`
	Position    float64 `json:"position"`
	CurrentPlID int64   `json:"currentplid"`
	// Information is an empty array when nothing is open.
	Information json.RawMessage `json:"information"`
}

// streams returns the ES ids of every stream of kind, in stream order.
func (s vlcStatus) streams(kind string) []int {
	var info struct {
		Category map[string]map[string]any `json:"category"`
	}
	if err := json.Unmarshal(s.Information, &info); err != nil {
		return nil
	}
	var ids []int
	for name, fields := range info.Category {
		n, ok := strings.CutPrefix(name, "Stream ")
		if !ok {
			continue
		}
		id, err := strconv.Atoi(n)
		if err != nil {
			continue
		}
		if t, _ := fields["Type"].(string); strings.EqualFold(t, kind) {
			ids = append(ids, id)
		}
	}
	sort.Ints(ids)
	return ids
}

func (d *Driver) status() (vlcStatus, error) {
	payload, err := d.request(nil)
	if err != nil {
		return vlcStatus{}, err
	}
	var st vlcStatus
	if err := json.Unmarshal(payload, &st); err != nil {
		return vlcStatus{}, fmt.Errorf("decode vlc status: %w", err)
	}
	return st, nil
}

func vals(v string) url.Values {
	return url.Values{"val": []string{v}}
}

func (d *Driver) command(name string, values url.Values) ([]byte, error) {
	if values == nil {
		values = url.Values{}
	}
	values.Set("command", name)
	return d.request(values)
}

func (d *Driver) request(values url.Values) ([]byte, error) {
	endpoint := d.baseURL + "/requests/status.json"
	if len(values) > 0 {
		endpoint = endpoint + "?" + values.Encode()
	}
	req, err := http.NewRequest("GET", endpoint, nil)
	if err != nil {
		return nil, err
	}
	if d.password != "" {
		req.SetBasicAuth("", d.password)
	}
	resp, err := d.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= 400 {
		msg := strings.TrimSpace(string(body))
		if msg == "" {
			msg = resp.Status
		}
		return nil, fmt.Errorf("vlc error: %s", msg)
	}
	return body, nil
}
