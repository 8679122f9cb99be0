package sentiment

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/vitos/crypto_sentiment_bot/internal/domain"
)

const (
	SocialBaseURL     = "https://api.lunarcrush.com/v2"
	CommunityBaseURL  = "https://www.reddit.com"
	AggregatorBaseURL = "https://api.alternative.me"
)

// Source is a single upstream producing a raw score in [-1,1] for an asset.
type Source interface {
	Name() string
	Fetch(ctx context.Context, asset string) (float64, error)
}

func newHTTPClient() *http.Client {
	return &http.Client{Timeout: 10 * time.Second}
}

func getJSON(ctx context.Context, client *http.Client, rawURL string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "crypto-sentiment-bot/1.0")

	resp, err := client.Do(req)
	if err != nil {
		return &domain.TransientFetchError{Op: "GET " + rawURL, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &domain.TransientFetchError{Op: "GET " + rawURL, Err: err}
	}
	if resp.StatusCode >= 400 {
		return &domain.TransientFetchError{Op: "GET " + rawURL, Err: fmt.Errorf("status %d", resp.StatusCode)}
	}

	return json.Unmarshal(body, out)
}

// SocialSource reads the social activity score from a LunarCrush style
// assets endpoint. The upstream sentiment field is on a 0..5 scale.
type SocialSource struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

func NewSocialSource(baseURL, apiKey string) *SocialSource {
	if baseURL == "" {
		baseURL = SocialBaseURL
	}
	return &SocialSource{baseURL: baseURL, apiKey: apiKey, client: newHTTPClient()}
}

func (s *SocialSource) Name() string { return "social" }

func (s *SocialSource) Fetch(ctx context.Context, asset string) (float64, error) {
	q := url.Values{}
	q.Set("data", "assets")
	q.Set("key", s.apiKey)
	q.Set("symbol", asset)

	var result struct {
		Data []struct {
			Sentiment float64 `json:"sentiment"`
		} `json:"data"`
	}
	if err := getJSON(ctx, s.client, s.baseURL+"?"+q.Encode(), &result); err != nil {
		return 0, err
	}
	if len(result.Data) == 0 {
		return 0, &domain.TransientFetchError{Op: "social sentiment", Err: fmt.Errorf("no data for %s", asset)}
	}

	return result.Data[0].Sentiment / 5.0, nil
}

// CommunitySource derives a score from community post approval. A post with
// upvote ratio r maps to 2r-1 in [-1,1]; posts are weighted by their score.
type CommunitySource struct {
	baseURL string
	client  *http.Client
}

func NewCommunitySource(baseURL string) *CommunitySource {
	if baseURL == "" {
		baseURL = CommunityBaseURL
	}
	return &CommunitySource{baseURL: baseURL, client: newHTTPClient()}
}

func (s *CommunitySource) Name() string { return "community" }

func (s *CommunitySource) Fetch(ctx context.Context, asset string) (float64, error) {
	q := url.Values{}
	q.Set("q", asset+" crypto")
	q.Set("limit", "50")
	q.Set("sort", "new")

	var result struct {
		Data struct {
			Children []struct {
				Data struct {
					Score       float64 `json:"score"`
					UpvoteRatio float64 `json:"upvote_ratio"`
				} `json:"data"`
			} `json:"children"`
		} `json:"data"`
	}
	if err := getJSON(ctx, s.client, s.baseURL+"/search.json?"+q.Encode(), &result); err != nil {
		return 0, err
	}
	if len(result.Data.Children) == 0 {
		return 0, &domain.TransientFetchError{Op: "community sentiment", Err: fmt.Errorf("no posts for %s", asset)}
	}

	var weighted, totalWeight float64
	for _, child := range result.Data.Children {
		post := child.Data
		w := post.Score
		if w < 1 {
			w = 1
		}
		weighted += (2*post.UpvoteRatio - 1) * w
		totalWeight += w
	}

	return weighted / totalWeight, nil
}

// AggregatorSource reads the market wide Fear & Greed index (0..100) and
// maps it linearly onto [-1,1]. It is asset independent.
type AggregatorSource struct {
	baseURL string
	client  *http.Client
}

func NewAggregatorSource(baseURL string) *AggregatorSource {
	if baseURL == "" {
		baseURL = AggregatorBaseURL
	}
	return &AggregatorSource{baseURL: baseURL, client: newHTTPClient()}
}

func (s *AggregatorSource) Name() string { return "aggregator" }

func (s *AggregatorSource) Fetch(ctx context.Context, asset string) (float64, error) {
	var result struct {
		Data []struct {
			Value               string `json:"value"`
			ValueClassification string `json:"value_classification"`
		} `json:"data"`
		Metadata struct {
			Error *string `json:"error,omitempty"`
		} `json:"metadata"`
	}
	if err := getJSON(ctx, s.client, s.baseURL+"/fng/?limit=1&format=json", &result); err != nil {
		return 0, err
	}
	if result.Metadata.Error != nil {
		return 0, &domain.TransientFetchError{Op: "aggregator sentiment", Err: fmt.Errorf("upstream error: %s", *result.Metadata.Error)}
	}
	if len(result.Data) == 0 {
		return 0, &domain.TransientFetchError{Op: "aggregator sentiment", Err: fmt.Errorf("no data")}
	}

	value, err := strconv.ParseFloat(result.Data[0].Value, 64)
	if err != nil {
		return 0, &domain.TransientFetchError{Op: "aggregator sentiment", Err: err}
	}

	return value/50.0 - 1.0, nil
}
