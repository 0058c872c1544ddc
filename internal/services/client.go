package services

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"net/http"
	"sync"
	"time"
)

// Sentinel errors for the generation boundary. Provider messages are wrapped,
// not replaced, so callers can still classify on the original text.
var (
	ErrGenerationFailed = errors.New("generation failed")
	ErrOperationTimeout = errors.New("operation timed out")
	ErrAssetResolution  = errors.New("asset resolution failed")
)

const (
	defaultImageModel = "gemini-3-pro-image-preview"
	defaultVideoModel = "veo-3.1-fast-generate-preview"
	defaultTextModel  = "gemini-3-flash-preview"

	// Dimensions of the generated blank starting frame the video provider
	// interpolates from toward the generated still.
	startFrameWidth  = 1280
	startFrameHeight = 720
)

// Client is the adapter around the generative backend. It exposes three
// primitives: image generation, video generation (as a long-running
// operation), and operation polling, plus asset resolution for completed
// video operations.
//
// The API key is looked up per call through keyFn so a runtime-selected key
// takes effect without rebuilding the client.
type Client struct {
	keyFn      func() string
	imageModel string
	videoModel string
	textModel  string
	baseURL    string
	httpClient *http.Client

	startFrameOnce sync.Once
	startFrame     []byte
	startFrameErr  error
}

// NewClient creates the adapter. Empty model names fall back to defaults.
func NewClient(keyFn func() string, imageModel, videoModel string) *Client {
	if imageModel == "" {
		imageModel = defaultImageModel
	}
	if videoModel == "" {
		videoModel = defaultVideoModel
	}
	return &Client{
		keyFn:      keyFn,
		imageModel: imageModel,
		videoModel: videoModel,
		textModel:  defaultTextModel,
		baseURL:    "https://generativelanguage.googleapis.com",
		httpClient: &http.Client{Timeout: 300 * time.Second},
	}
}

func (c *Client) apiKey() string {
	if c.keyFn == nil {
		return ""
	}
	return c.keyFn()
}

// blankStartFrame returns a black 1280x720 PNG, built once and cached.
// It is sent as the first frame of every video generation request.
func (c *Client) blankStartFrame() ([]byte, error) {
	c.startFrameOnce.Do(func() {
		img := image.NewRGBA(image.Rect(0, 0, startFrameWidth, startFrameHeight))
		draw.Draw(img, img.Bounds(), image.NewUniform(color.Black), image.Point{}, draw.Src)

		var buf bytes.Buffer
		if err := png.Encode(&buf, img); err != nil {
			c.startFrameErr = err
			return
		}
		c.startFrame = buf.Bytes()
	})
	return c.startFrame, c.startFrameErr
}
