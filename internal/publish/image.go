package publish

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"github.com/yangwenmai/autoblog/internal/chain"
	"github.com/yangwenmai/autoblog/internal/engine"
	"github.com/yangwenmai/autoblog/internal/events"
	"github.com/yangwenmai/autoblog/internal/fsutil"
	"github.com/yangwenmai/autoblog/internal/logger"
	"github.com/yangwenmai/autoblog/internal/model"
)

// StageImage is the chain name used in logs and events.
const StageImage = "image"

// PlaceholderImage is used whenever no image could be found or downloaded.
const PlaceholderImage = "/images/placeholder.jpg"

// ImageTimeout bounds image searches and downloads.
const ImageTimeout = 15 * time.Second

// ImageProvider searches for one image matching a query.
type ImageProvider = chain.Provider[string, model.ImageCandidate]

var errNoResults = errors.New("no results")

var stopWords = map[string]struct{}{
	"the": {}, "a": {}, "an": {}, "and": {}, "or": {}, "but": {}, "in": {}, "on": {}, "at": {},
	"to": {}, "for": {}, "of": {}, "with": {}, "by": {}, "is": {}, "are": {}, "was": {}, "were": {},
	"how": {}, "what": {}, "why": {}, "when": {}, "where": {},
}

// ImageQuery builds a search query from the title's keywords (stop words and words of three or
// fewer letters dropped) followed by the first tag, keeping the first three terms.
func ImageQuery(title string, tags []string) string {
	var terms []string
	for _, w := range strings.Fields(strings.ToLower(title)) {
		w = strings.TrimFunc(w, func(r rune) bool { return !unicode.IsLetter(r) && !unicode.IsDigit(r) })
		if _, stop := stopWords[w]; stop || len([]rune(w)) <= 3 {
			continue
		}
		terms = append(terms, w)
	}
	if len(tags) > 0 && tags[0] != "" {
		terms = append(terms, strings.ToLower(tags[0]))
	}
	if len(terms) > 3 {
		terms = terms[:3]
	}
	if len(terms) == 0 {
		return "technology"
	}
	return strings.Join(terms, " ")
}

// UnsplashProvider searches Unsplash for a landscape photo.
type UnsplashProvider struct {
	accessKey  string
	baseURL    string
	httpClient *http.Client
}

// NewUnsplashProvider creates the provider. A nil client uses a 15 second timeout.
func NewUnsplashProvider(accessKey string, httpClient *http.Client) *UnsplashProvider {
	if httpClient == nil {
		httpClient = engine.NewHTTPClient(ImageTimeout, nil)
	}
	return &UnsplashProvider{accessKey: accessKey, baseURL: "https://api.unsplash.com", httpClient: httpClient}
}

// WithBaseURL returns a copy pointed at a different endpoint.
func (p *UnsplashProvider) WithBaseURL(u string) *UnsplashProvider {
	cp := *p
	cp.baseURL = strings.TrimRight(u, "/")
	return &cp
}

func (p *UnsplashProvider) Name() string { return "unsplash" }

func (p *UnsplashProvider) Produce(ctx context.Context, query string) (model.ImageCandidate, error) {
	if p.accessKey == "" {
		return model.ImageCandidate{}, chain.ErrMissingCredentials
	}
	var resp struct {
		Results []struct {
			AltDescription string `json:"alt_description"`
			URLs           struct {
				Regular string `json:"regular"`
				Small   string `json:"small"`
			} `json:"urls"`
			User struct {
				Name string `json:"name"`
			} `json:"user"`
		} `json:"results"`
	}
	err := engine.GetJSON(ctx, p.httpClient, p.baseURL+"/search/photos?"+searchParams(query),
		map[string]string{"Authorization": "Client-ID " + p.accessKey}, &resp)
	if err != nil {
		return model.ImageCandidate{}, fmt.Errorf("unsplash: %w", err)
	}
	if len(resp.Results) == 0 {
		return model.ImageCandidate{}, errNoResults
	}
	photo := resp.Results[0]
	alt := photo.AltDescription
	if alt == "" {
		alt = query
	}
	return model.ImageCandidate{
		URL:          photo.URLs.Regular,
		ThumbnailURL: photo.URLs.Small,
		Alt:          alt,
		Attribution:  "Photo by " + photo.User.Name + " on Unsplash",
		Source:       "unsplash",
	}, nil
}

// PexelsProvider searches Pexels for a landscape photo.
type PexelsProvider struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// NewPexelsProvider creates the provider. A nil client uses a 15 second timeout.
func NewPexelsProvider(apiKey string, httpClient *http.Client) *PexelsProvider {
	if httpClient == nil {
		httpClient = engine.NewHTTPClient(ImageTimeout, nil)
	}
	return &PexelsProvider{apiKey: apiKey, baseURL: "https://api.pexels.com/v1", httpClient: httpClient}
}

// WithBaseURL returns a copy pointed at a different endpoint.
func (p *PexelsProvider) WithBaseURL(u string) *PexelsProvider {
	cp := *p
	cp.baseURL = strings.TrimRight(u, "/")
	return &cp
}

func (p *PexelsProvider) Name() string { return "pexels" }

func (p *PexelsProvider) Produce(ctx context.Context, query string) (model.ImageCandidate, error) {
	if p.apiKey == "" {
		return model.ImageCandidate{}, chain.ErrMissingCredentials
	}
	var resp struct {
		Photos []struct {
			Alt          string `json:"alt"`
			Photographer string `json:"photographer"`
			Src          struct {
				Large string `json:"large"`
				Small string `json:"small"`
			} `json:"src"`
		} `json:"photos"`
	}
	err := engine.GetJSON(ctx, p.httpClient, p.baseURL+"/search?"+searchParams(query),
		map[string]string{"Authorization": p.apiKey}, &resp)
	if err != nil {
		return model.ImageCandidate{}, fmt.Errorf("pexels: %w", err)
	}
	if len(resp.Photos) == 0 {
		return model.ImageCandidate{}, errNoResults
	}
	photo := resp.Photos[0]
	alt := photo.Alt
	if alt == "" {
		alt = query
	}
	return model.ImageCandidate{
		URL:          photo.Src.Large,
		ThumbnailURL: photo.Src.Small,
		Alt:          alt,
		Attribution:  "Photo by " + photo.Photographer + " from Pexels",
		Source:       "pexels",
	}, nil
}

func searchParams(query string) string {
	v := url.Values{}
	v.Set("query", query)
	v.Set("per_page", "1")
	v.Set("orientation", "landscape")
	return v.Encode()
}

// MaxImageBytes caps a downloaded image.
const MaxImageBytes = 10 << 20

// Downloader saves images under a directory served at a public prefix.
type Downloader struct {
	dir        string
	publicPath string
	httpClient *http.Client
}

// NewDownloader stores files in dir and returns paths under publicPath (e.g. "/images").
func NewDownloader(dir, publicPath string, httpClient *http.Client) *Downloader {
	if httpClient == nil {
		httpClient = engine.NewHTTPClient(engine.DefaultTimeout, nil)
	}
	return &Downloader{dir: dir, publicPath: strings.TrimRight(publicPath, "/"), httpClient: httpClient}
}

// Download fetches src into <dir>/<slug>.<ext> and returns its public path. The extension follows
// the response content type: png, webp, otherwise jpg.
func (d *Downloader) Download(ctx context.Context, src, slug string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src, nil)
	if err != nil {
		return "", err
	}
	resp, err := d.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("download: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("download: HTTP %d", resp.StatusCode)
	}

	ext := "jpg"
	switch ct := resp.Header.Get("Content-Type"); {
	case strings.Contains(ct, "png"):
		ext = "png"
	case strings.Contains(ct, "webp"):
		ext = "webp"
	}
	name := slug + "." + ext

	data, err := io.ReadAll(io.LimitReader(resp.Body, MaxImageBytes+1))
	if err != nil {
		return "", fmt.Errorf("download: %w", err)
	}
	if len(data) > MaxImageBytes {
		return "", fmt.Errorf("download: image larger than %d bytes", MaxImageBytes)
	}
	if err := fsutil.WriteFile(filepath.Join(d.dir, name), data); err != nil {
		return "", fmt.Errorf("write image: %w", err)
	}
	return d.publicPath + "/" + name, nil
}

// ImageDownloader saves a remote image for a slug.
type ImageDownloader interface {
	Download(ctx context.Context, src, slug string) (string, error)
}

// ImageFinder runs the image sub-chain. It never fails: any problem yields the placeholder.
type ImageFinder struct {
	chain      *chain.Chain[string, model.ImageCandidate]
	downloader ImageDownloader
	log        logger.Logger
	reporter   events.Reporter
	now        func() time.Time
}

// NewImageFinder creates a finder over providers in priority order.
func NewImageFinder(providers []ImageProvider, downloader ImageDownloader, log logger.Logger, reporter events.Reporter) *ImageFinder {
	if log == nil {
		log = logger.NewNop()
	}
	if reporter == nil {
		reporter = events.Nop{}
	}
	log = log.With(logger.Component(StageImage))
	return &ImageFinder{
		chain: chain.New(StageImage, providers,
			chain.WithAccept[string, model.ImageCandidate](func(c model.ImageCandidate) error {
				if c.URL == "" {
					return errors.New("candidate without url")
				}
				return nil
			}),
			chain.WithLogger[string, model.ImageCandidate](log),
			chain.WithReporter[string, model.ImageCandidate](reporter),
		),
		downloader: downloader,
		log:        log,
		reporter:   reporter,
		now:        time.Now,
	}
}

// Find searches with the title query, then with a generic query (first tag or "technology"),
// and downloads the winner.
func (f *ImageFinder) Find(ctx context.Context, title, slug string, tags []string) model.ImageResult {
	query := ImageQuery(title, tags)
	res, err := f.chain.Attempt(ctx, query)
	if err != nil {
		generic := "technology"
		if len(tags) > 0 && tags[0] != "" {
			generic = tags[0]
		}
		f.log.Info("retrying image search with generic query", logger.String("query", generic))
		res, err = f.chain.Attempt(ctx, generic)
	}
	if err != nil {
		return f.placeholder(title, err)
	}

	path, err := f.downloader.Download(ctx, res.Value.URL, slug)
	if err != nil {
		return f.placeholder(title, err)
	}
	f.log.Info("image saved", logger.String("slug", slug), logger.String("path", path), logger.String("provider", res.Provider))
	return model.ImageResult{
		Path:        path,
		Alt:         res.Value.Alt,
		Attribution: res.Value.Attribution,
		Source:      res.Provider,
	}
}

func (f *ImageFinder) placeholder(title string, err error) model.ImageResult {
	f.log.Warn("no image found, using placeholder", logger.String("title", title), logger.Error(err))
	f.reporter.Report(events.Event{Kind: events.FallbackUsed, Time: f.now(), Stage: StageImage, Topic: title, Err: err})
	return Placeholder(title)
}

// Placeholder is the image used when none could be found.
func Placeholder(title string) model.ImageResult {
	return model.ImageResult{Path: PlaceholderImage, Alt: title}
}
