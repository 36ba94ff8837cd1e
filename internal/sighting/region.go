package sighting

import (
	"strconv"
	"strings"

	"golang.org/x/text/width"
)

type region struct {
	kanji  string
	romaji string
	point  Point
}

// prefectures maps each prefecture to its capital's coordinates
var prefectures = []region{
	{"北海道", "hokkaido", Point{43.064, 141.347}},
	{"青森", "aomori", Point{40.824, 140.740}},
	{"岩手", "iwate", Point{39.704, 141.153}},
	{"宮城", "miyagi", Point{38.269, 140.872}},
	{"秋田", "akita", Point{39.719, 140.102}},
	{"山形", "yamagata", Point{38.240, 140.364}},
	{"福島", "fukushima", Point{37.750, 140.468}},
	{"茨城", "ibaraki", Point{36.342, 140.447}},
	{"栃木", "tochigi", Point{36.566, 139.884}},
	{"群馬", "gunma", Point{36.391, 139.061}},
	{"埼玉", "saitama", Point{35.857, 139.649}},
	{"千葉", "chiba", Point{35.605, 140.123}},
	{"東京", "tokyo", Point{35.690, 139.692}},
	{"神奈川", "kanagawa", Point{35.448, 139.643}},
	{"新潟", "niigata", Point{37.902, 139.023}},
	{"富山", "toyama", Point{36.695, 137.211}},
	{"石川", "ishikawa", Point{36.594, 136.626}},
	{"福井", "fukui", Point{36.065, 136.222}},
	{"山梨", "yamanashi", Point{35.664, 138.568}},
	{"長野", "nagano", Point{36.651, 138.181}},
	{"岐阜", "gifu", Point{35.391, 136.722}},
	{"静岡", "shizuoka", Point{34.977, 138.383}},
	{"愛知", "aichi", Point{35.180, 136.907}},
	{"三重", "mie", Point{34.730, 136.509}},
	{"滋賀", "shiga", Point{35.004, 135.868}},
	{"京都", "kyoto", Point{35.021, 135.756}},
	{"大阪", "osaka", Point{34.686, 135.520}},
	{"兵庫", "hyogo", Point{34.691, 135.183}},
	{"奈良", "nara", Point{34.685, 135.833}},
	{"和歌山", "wakayama", Point{34.226, 135.168}},
	{"鳥取", "tottori", Point{35.504, 134.238}},
	{"島根", "shimane", Point{35.472, 133.051}},
	{"岡山", "okayama", Point{34.662, 133.935}},
	{"広島", "hiroshima", Point{34.396, 132.460}},
	{"山口", "yamaguchi", Point{34.186, 131.471}},
	{"徳島", "tokushima", Point{34.066, 134.559}},
	{"香川", "kagawa", Point{34.340, 134.043}},
	{"愛媛", "ehime", Point{33.842, 132.766}},
	{"高知", "kochi", Point{33.560, 133.531}},
	{"福岡", "fukuoka", Point{33.607, 130.418}},
	{"佐賀", "saga", Point{33.249, 130.299}},
	{"長崎", "nagasaki", Point{32.745, 129.874}},
	{"熊本", "kumamoto", Point{32.790, 130.742}},
	{"大分", "oita", Point{33.238, 131.613}},
	{"宮崎", "miyazaki", Point{31.911, 131.424}},
	{"鹿児島", "kagoshima", Point{31.560, 130.558}},
	{"沖縄", "okinawa", Point{26.212, 127.681}},
}

// ResolveLocation turns a free-text location into a coordinate. It accepts a
// "lat,lng" pair inside bounds or a prefecture name in kanji or romaji, and
// returns fallback when neither matches.
func ResolveLocation(location string, bounds Bounds, fallback Point) (Point, bool) {
	location = strings.TrimSpace(width.Narrow.String(location))
	if location == "" {
		return fallback, false
	}

	if lat, lng, ok := parsePair(location); ok && bounds.Contains(lat, lng) {
		return Point{Lat: lat, Lng: lng}, true
	}

	lower := strings.ToLower(location)
	// longest kanji wins; ties keep the earlier entry so 東京都 resolves to Tokyo
	var best *region
	for i := range prefectures {
		r := &prefectures[i]
		if strings.Contains(location, r.kanji) || strings.Contains(lower, r.romaji) {
			if best == nil || len(r.kanji) > len(best.kanji) {
				best = r
			}
		}
	}
	if best != nil {
		return best.point, true
	}
	return fallback, false
}

func parsePair(s string) (float64, float64, bool) {
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return 0, 0, false
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return 0, 0, false
	}
	lng, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return 0, 0, false
	}
	return lat, lng, true
}
