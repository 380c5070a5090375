package ephemeris

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	// DefaultHorizonsURL is the JPL Horizons JSON API endpoint.
	DefaultHorizonsURL = "https://ssd.jpl.nasa.gov/api/horizons.api"

	defaultHorizonsTimeout = 30 * time.Second

	// maxHorizonsBytes caps a single response; one-epoch tables are a few KB.
	maxHorizonsBytes = 1 << 20
)

// horizonsTargets maps bodies to Horizons COMMAND values (NAIF IDs).
// The mean node is not an ephemeris object and has no entry.
var horizonsTargets = map[Body]string{
	Sun:     "10",
	Moon:    "301",
	Mercury: "199",
	Venus:   "299",
	Mars:    "499",
	Jupiter: "599",
	Saturn:  "699",
}

// Horizons queries JPL Horizons for geocentric ecliptic longitude and range.
type Horizons struct {
	baseURL  string
	client   *http.Client
	sidereal SiderealMode
	logger   *slog.Logger
}

// NewHorizons creates a Horizons engine from cfg.
func NewHorizons(cfg Config, logger *slog.Logger) *Horizons {
	baseURL := cfg.HorizonsURL
	if baseURL == "" {
		baseURL = DefaultHorizonsURL
	}
	timeout := cfg.HorizonsTimeout
	if timeout <= 0 {
		timeout = defaultHorizonsTimeout
	}
	return &Horizons{
		baseURL:  baseURL,
		client:   &http.Client{Timeout: timeout},
		sidereal: cfg.Sidereal,
		logger:   logger,
	}
}

// Name implements Engine.
func (h *Horizons) Name() string { return "horizons" }

// Ready implements Engine. It does not contact the remote service.
func (h *Horizons) Ready() error {
	u, err := url.Parse(h.baseURL)
	if err != nil {
		return fmt.Errorf("horizons url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("horizons url: unsupported scheme %q", u.Scheme)
	}
	return nil
}

// Open implements Engine.
func (h *Horizons) Open() (Session, error) {
	return &horizonsSession{engine: h, state: openSession(h.Name())}, nil
}

type horizonsSession struct {
	engine *Horizons
	state  *sessionState
}

func (s *horizonsSession) Close() error {
	return s.state.close()
}

func (s *horizonsSession) Calc(ctx context.Context, jd float64, body Body, flags Flags) (Position, error) {
	if err := s.state.check(); err != nil {
		return Position{}, err
	}
	target, ok := horizonsTargets[body]
	if !ok {
		return Position{}, fmt.Errorf("horizons %s: %w", body, ErrUnsupportedBody)
	}

	pos, err := s.engine.query(ctx, target, jd)
	if err != nil {
		return Position{}, fmt.Errorf("horizons %s: %w", body, err)
	}
	if flags&FlagSidereal != 0 {
		pos.Longitude = s.engine.sidereal.toSidereal(pos.Longitude, jd)
	}
	return pos, nil
}

// query requests a single-epoch observer table: range (quantity 20) and
// observer ecliptic longitude/latitude (quantity 31), geocentric, CSV.
func (h *Horizons) query(ctx context.Context, target string, jd float64) (Position, error) {
	// Values must be quoted with single quotes.
	params := url.Values{}
	params.Set("format", "json")
	params.Set("COMMAND", fmt.Sprintf("'%s'", target))
	params.Set("OBJ_DATA", "'NO'")
	params.Set("MAKE_EPHEM", "'YES'")
	params.Set("EPHEM_TYPE", "'OBSERVER'")
	params.Set("CENTER", "'500@399'")
	params.Set("TLIST", fmt.Sprintf("'%.9f'", jd))
	params.Set("TLIST_TYPE", "'JD'")
	params.Set("TIME_TYPE", "'UT'")
	params.Set("QUANTITIES", "'20,31'")
	params.Set("CAL_FORMAT", "'JD'")
	params.Set("ANG_FORMAT", "'DEG'")
	params.Set("CSV_FORMAT", "'YES'")

	reqURL := h.baseURL + "?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return Position{}, fmt.Errorf("creating request: %w", err)
	}

	start := time.Now()
	resp, err := h.client.Do(req)
	if err != nil {
		return Position{}, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxHorizonsBytes+1))
	if err != nil {
		return Position{}, fmt.Errorf("reading response: %w", err)
	}
	if len(body) > maxHorizonsBytes {
		return Position{}, fmt.Errorf("response exceeds %d byte limit", maxHorizonsBytes)
	}
	if resp.StatusCode != http.StatusOK {
		return Position{}, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, truncate(string(body), 200))
	}

	h.logger.Debug("horizons query",
		"component", "ephemeris",
		"target", target,
		"jd", jd,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	return parseHorizonsResponse(body)
}

// horizonsResponse is the JSON envelope; the table is a text blob in Result.
type horizonsResponse struct {
	Signature struct {
		Version string `json:"version"`
		Source  string `json:"source"`
	} `json:"signature"`
	Result string `json:"result"`
	Error  string `json:"error"`
}

func parseHorizonsResponse(body []byte) (Position, error) {
	var resp horizonsResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return Position{}, fmt.Errorf("parsing JSON: %w", err)
	}
	if resp.Error != "" {
		return Position{}, fmt.Errorf("api error: %s", truncate(resp.Error, 200))
	}
	return parseObserverRow(resp.Result)
}

// parseObserverRow extracts the first row between $$SOE and $$EOE.
// With CSV_FORMAT the row is: JD, solar flag, lunar flag, delta, deldot,
// ObsEcLon, ObsEcLat. Flag columns may be blank or non-numeric, so the four
// values are taken from the numeric fields after the JD.
func parseObserverRow(result string) (Position, error) {
	soe := strings.Index(result, "$$SOE")
	eoe := strings.Index(result, "$$EOE")
	if soe == -1 || eoe == -1 || soe >= eoe {
		return Position{}, fmt.Errorf("could not find ephemeris data markers")
	}

	for _, line := range strings.Split(result[soe+5:eoe], "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		fields := strings.Split(line, ",")
		var nums []float64
		for _, f := range fields[1:] {
			v, err := strconv.ParseFloat(strings.TrimSpace(f), 64)
			if err == nil {
				nums = append(nums, v)
			}
		}
		if len(nums) < 4 {
			return Position{}, fmt.Errorf("expected 4 numeric columns, got %d", len(nums))
		}

		return Position{
			Longitude: normalizeAngle360(nums[2]),
			Latitude:  nums[3],
			Distance:  nums[0],
		}, nil
	}
	return Position{}, fmt.Errorf("no ephemeris rows")
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
