package instagram

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"golang.org/x/net/proxy"
)

// tempFiles owns the temporary media files created during one video
// acquisition. Cleanup removes everything it created, swallowing per-file
// errors, and runs on every exit path of the acquisition call.
type tempFiles struct {
	paths []string
}

// Create makes a new temp file, closes it, and tracks it for removal.
func (t *tempFiles) Create(pattern string) (string, error) {
	f, err := os.CreateTemp("", pattern)
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	path := f.Name()
	f.Close()
	t.paths = append(t.paths, path)
	return path, nil
}

func (t *tempFiles) Cleanup() {
	for _, path := range t.paths {
		_ = os.Remove(path)
	}
	t.paths = nil
}

// Transcriber turns an audio file into text.
type Transcriber interface {
	Transcribe(ctx context.Context, audioPath string) (string, error)
}

// whisperTranscriber posts audio to a Whisper-compatible HTTP endpoint.
type whisperTranscriber struct {
	client *resty.Client
	model  string
}

func newWhisperTranscriber(cfg *Config) *whisperTranscriber {
	client := resty.New().
		SetBaseURL(cfg.TranscriberURL).
		SetTimeout(5 * time.Minute)
	if cfg.TranscriberToken != "" {
		client.SetAuthToken(cfg.TranscriberToken)
	}
	return &whisperTranscriber{client: client, model: cfg.TranscriberModel}
}

func (w *whisperTranscriber) Transcribe(ctx context.Context, audioPath string) (string, error) {
	if w.client.BaseURL == "" {
		return "", fmt.Errorf("transcriber url not configured")
	}

	var result struct {
		Text string `json:"text"`
	}
	resp, err := w.client.R().
		SetContext(ctx).
		SetFile("file", audioPath).
		SetFormData(map[string]string{"model": w.model}).
		SetResult(&result).
		Post("/v1/audio/transcriptions")
	if err != nil {
		return "", fmt.Errorf("transcribe request: %w", err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("transcribe: HTTP %d", resp.StatusCode())
	}
	return strings.TrimSpace(result.Text), nil
}

// mediaPipeline runs the download, audio extraction and transcription
// stages for one media URL. Every stage failure downgrades the transcript
// to a sentinel instead of aborting the record.
type mediaPipeline struct {
	download    *resty.Client
	transcriber Transcriber
	ffmpegBin   string
	logger      *slog.Logger

	// runFFmpeg executes the audio extraction command. Replaceable for
	// testing.
	runFFmpeg func(ctx context.Context, bin string, args ...string) error
}

func newMediaPipeline(cfg *Config) *mediaPipeline {
	p := &mediaPipeline{
		download: resty.New().
			SetTimeout(2 * time.Minute).
			SetTransport(downloadTransport()),
		transcriber: newWhisperTranscriber(cfg),
		ffmpegBin:   cfg.FFmpegBin,
		logger:      slog.Default(),
	}
	p.runFFmpeg = runCommand
	return p
}

// downloadTransport returns a pooled http.Transport tuned for large media
// downloads.
func downloadTransport() *http.Transport {
	return &http.Transport{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
	}
}

// setProxy configures an HTTP/HTTPS or SOCKS5 proxy for media downloads.
func (p *mediaPipeline) setProxy(proxyAddr string) error {
	if proxyAddr == "" {
		p.download.SetTransport(downloadTransport())
		return nil
	}

	u, err := url.Parse(proxyAddr)
	if err != nil {
		return fmt.Errorf("parse proxy url: %w", err)
	}

	base := downloadTransport()
	switch u.Scheme {
	case "http", "https":
		base.Proxy = http.ProxyURL(u)
	case "socks5":
		var auth *proxy.Auth
		if u.User != nil {
			pass, _ := u.User.Password()
			auth = &proxy.Auth{User: u.User.Username(), Password: pass}
		}
		dialer, err := proxy.SOCKS5("tcp", u.Host, auth, proxy.Direct)
		if err != nil {
			return fmt.Errorf("socks5 proxy: %w", err)
		}
		dc, ok := dialer.(proxy.ContextDialer)
		if !ok {
			return fmt.Errorf("socks5: context dialer not supported")
		}
		base.DialContext = dc.DialContext
	default:
		return fmt.Errorf("unsupported proxy scheme: %s", u.Scheme)
	}

	p.download.SetTransport(base)
	return nil
}

// transcribe runs the full media leg for one URL and always returns
// transcript text: real on success, a stage-naming sentinel on any failure.
// Both temporary files are removed before return regardless of outcome.
func (p *mediaPipeline) transcribe(ctx context.Context, mediaURL string) string {
	if mediaURL == "" {
		return TranscriptionNoVideoURL
	}

	tmp := &tempFiles{}
	defer tmp.Cleanup()

	videoPath, err := p.downloadVideo(ctx, tmp, mediaURL)
	if err != nil {
		p.logger.Warn("video download failed", "url", mediaURL, "error", err)
		return TranscriptionDownloadErr
	}

	audioPath, err := p.extractAudio(ctx, tmp, videoPath)
	if err != nil {
		p.logger.Warn("audio extraction failed", "error", err)
		return TranscriptionNoAudio
	}

	text, err := p.transcriber.Transcribe(ctx, audioPath)
	if err != nil {
		p.logger.Warn("transcription failed", "error", err)
		return TranscriptionFailed
	}
	return text
}

func (p *mediaPipeline) downloadVideo(ctx context.Context, tmp *tempFiles, mediaURL string) (string, error) {
	path, err := tmp.Create("instagram-video-*.mp4")
	if err != nil {
		return "", err
	}

	resp, err := p.download.R().
		SetContext(ctx).
		SetOutput(path).
		Get(mediaURL)
	if err != nil {
		return "", fmt.Errorf("download video: %w", err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("download video: HTTP %d", resp.StatusCode())
	}
	return path, nil
}

// extractAudio produces a mono 16kHz WAV track, the input format the
// transcription models expect.
func (p *mediaPipeline) extractAudio(ctx context.Context, tmp *tempFiles, videoPath string) (string, error) {
	path, err := tmp.Create("instagram-audio-*.wav")
	if err != nil {
		return "", err
	}

	args := []string{
		"-i", videoPath,
		"-vn",
		"-acodec", "pcm_s16le",
		"-ar", "16000",
		"-ac", "1",
		"-y", path,
	}
	if err := p.runFFmpeg(ctx, p.ffmpegBin, args...); err != nil {
		return "", fmt.Errorf("extract audio: %w", err)
	}
	return path, nil
}

func runCommand(ctx context.Context, bin string, args ...string) error {
	out, err := exec.CommandContext(ctx, bin, args...).CombinedOutput()
	if err != nil {
		return fmt.Errorf("%s: %w: %s", bin, err, tail(string(out), 200))
	}
	return nil
}

func tail(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return "..." + s[len(s)-n:]
}
