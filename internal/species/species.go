// Package species answers which bear species a traveller may meet at a
// location, with safety advice.
package species

// BearType is the broad species group
type BearType string

const (
	TypeBrown BearType = "BROWN"
	TypeBlack BearType = "BLACK"
)

// SourceAI and SourceStatic tell where an Info came from
const (
	SourceAI     = "ai"
	SourceStatic = "static"
)

// TsugaruLatitude approximates the Tsugaru Strait. Brown bears live north
// of it, black bears south.
const TsugaruLatitude = 41.2

// Info is a region advisory
type Info struct {
	Name           string   `json:"name"`
	ScientificName string   `json:"scientificName"`
	Type           BearType `json:"type"`
	RiskLevel      string   `json:"riskLevel"`
	Features       string   `json:"features"`
	Advice         string   `json:"advice"`
	Source         string   `json:"source"`
}

var higuma = Info{
	Name:           "北海道棕熊 (Higuma)",
	ScientificName: "Ursus arctos lasiotus",
	Type:           TypeBrown,
	RiskLevel:      "EXTREME (極高)",
	Features:       "日本最強猛獸。體長可達2.5米，體重400kg+。奔跑時速60km。",
	Advice:         "絕對不可裝死。遇到時需保持極遠距離，切勿奔跑。",
	Source:         SourceStatic,
}

var tsukinowaguma = Info{
	Name:           "亞洲黑熊 (Tsukinowaguma)",
	ScientificName: "Ursus thibetanus japonicus",
	Type:           TypeBlack,
	RiskLevel:      "HIGH (高)",
	Features:       "胸前有月牙白紋。體型較小但極敏捷，善於爬樹。",
	Advice:         "多為突發性驚嚇攻擊。務必配戴熊鈴告知存在。",
	Source:         SourceStatic,
}

// Lookup returns the static advisory for a latitude. Black bears are
// extinct in Kyushu but the black bear advice is still the safe default
// south of the strait.
func Lookup(lat float64) Info {
	if lat > TsugaruLatitude {
		return higuma
	}
	return tsukinowaguma
}
