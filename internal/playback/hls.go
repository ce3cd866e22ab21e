package playback

import (
	"net/url"
	"regexp"
	"strconv"
	"strings"
)

var bandwidthRe = regexp.MustCompile(`BANDWIDTH=(\d+)`)

type variant struct {
	bandwidth int
	uri       string
}

func isMasterPlaylist(body string) bool {
	return strings.Contains(body, "#EXT-X-STREAM-INF")
}

// parseMasterPlaylist collects variant streams with their bandwidth,
// resolving relative URIs against the master playlist URL.
func parseMasterPlaylist(base *url.URL, body string) []variant {
	var variants []variant
	var pending int

	for _, line := range strings.Split(body, "\n") {
		line = strings.TrimSpace(line)

		if strings.HasPrefix(line, "#EXT-X-STREAM-INF") {
			pending = 0
			if m := bandwidthRe.FindStringSubmatch(line); m != nil {
				pending, _ = strconv.Atoi(m[1])
			}
			continue
		}

		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		ref, err := url.Parse(line)
		if err != nil {
			continue
		}

		variants = append(variants, variant{
			bandwidth: pending,
			uri:       base.ResolveReference(ref).String(),
		})
		pending = 0
	}

	return variants
}

// parseMediaPlaylist sums segment durations.
func parseMediaPlaylist(body string) (float64, int) {
	var duration float64
	var segments int

	for _, line := range strings.Split(body, "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "#EXTINF:") {
			continue
		}

		value := strings.TrimPrefix(line, "#EXTINF:")
		if idx := strings.Index(value, ","); idx != -1 {
			value = value[:idx]
		}

		d, err := strconv.ParseFloat(value, 64)
		if err != nil {
			continue
		}

		duration += d
		segments++
	}

	return duration, segments
}
