package consensus

import (
	"context"
	"math"
	"regexp"
	"strings"

	"github.com/antonholmquist/jason"

	"github.com/tphakala/bearwatch/internal/llmjson"
)

// Voter names used in logs, metrics and method labels
const (
	VoterGemini = "GEMINI"
	VoterGrok   = "GROK"
)

// Verdict is one classifier's answer
type Verdict struct {
	IsBearSign   bool   `json:"isBearSign"`
	Confidence   int    `json:"confidence"`
	DetectedType string `json:"detectedType,omitempty"`
	Reason       string `json:"reason,omitempty"`
	// Parsed is false when the reply could not be understood and was counted as NO
	Parsed bool `json:"-"`
}

// Voter classifies one image
type Voter interface {
	Name() string
	Vote(ctx context.Context, img Image) (Verdict, error)
}

// GeminiVision is the image call of the Gemini client
type GeminiVision interface {
	Vision(ctx context.Context, system, prompt string, image []byte, mimeType string) (string, error)
}

// GrokVision is the image call of the xAI client
type GrokVision interface {
	Vision(ctx context.Context, system, prompt, imageURL string) (string, error)
}

// Role selects the prompt and reply format of a voter
type Role int

const (
	// RolePrimary returns a structured verdict
	RolePrimary Role = iota
	// RoleSecondary returns YES or NO
	RoleSecondary
	// RoleSkeptic is RoleSecondary with a stricter persona, used when the
	// secondary vote comes from the same model as the primary
	RoleSkeptic
)

const primarySystem = `You are a wildlife forensics assistant for a Japanese bear alert service.
Decide whether a user-submitted photo shows evidence of a bear: the animal itself, a bear footprint, or bear scat.`

const primaryPrompt = `Examine the photo and answer with a single JSON object only:
{"isBearSign": true|false, "confidence": 0-100, "detectedType": "BEAR"|"FOOTPRINT"|"SCAT"|"NONE", "reason": "one short sentence in Traditional Chinese"}
Dogs, boars, deer, plush toys, drawings and screenshots are NOT bear signs.`

const secondarySystem = `You are an independent reviewer of wildlife photos.`

const secondaryPrompt = `Does this photo show a bear, a bear footprint, or bear scat? Answer with exactly one word: YES or NO.`

const skepticSystem = `You are a skeptical senior wildlife biologist reviewing another model's claim that this photo shows a bear sign.
False alarms cause public panic, so you reject anything ambiguous: blurry shapes, other animals, domestic dogs, wild boar, tracks that could belong to other species, staged or downloaded images.`

const skepticPrompt = `Only if you are certain the photo shows a real bear, a bear footprint, or bear scat answer YES. Otherwise answer NO. Answer with exactly one word: YES or NO.`

type visionVoter struct {
	name string
	role Role
	ask  func(ctx context.Context, system, prompt string, img Image) (string, error)
}

// NewGeminiVoter creates a voter backed by Gemini vision
func NewGeminiVoter(client GeminiVision, role Role) Voter {
	return &visionVoter{
		name: VoterGemini,
		role: role,
		ask: func(ctx context.Context, system, prompt string, img Image) (string, error) {
			return client.Vision(ctx, system, prompt, img.Data, img.MIMEType)
		},
	}
}

// NewGrokVoter creates a voter backed by Grok vision
func NewGrokVoter(client GrokVision, role Role) Voter {
	return &visionVoter{
		name: VoterGrok,
		role: role,
		ask: func(ctx context.Context, system, prompt string, img Image) (string, error) {
			return client.Vision(ctx, system, prompt, img.DataURL())
		},
	}
}

func (v *visionVoter) Name() string { return v.name }

func (v *visionVoter) Vote(ctx context.Context, img Image) (Verdict, error) {
	system, prompt := primarySystem, primaryPrompt
	switch v.role {
	case RoleSecondary:
		system, prompt = secondarySystem, secondaryPrompt
	case RoleSkeptic:
		system, prompt = skepticSystem, skepticPrompt
	}

	reply, err := v.ask(ctx, system, prompt, img)
	if err != nil {
		return Verdict{}, err
	}
	if v.role == RolePrimary {
		return ParseVerdict(reply), nil
	}
	return ParseBinary(reply), nil
}

var yesNo = regexp.MustCompile(`(?i)\b(YES|NO)\b`)

// ParseVerdict reads a structured verdict from a model reply. Anything it
// cannot read becomes a NO with Parsed=false.
func ParseVerdict(reply string) Verdict {
	obj, ok := llmjson.ExtractObject(reply)
	if !ok {
		return Verdict{}
	}

	var v Verdict
	if b, err := obj.GetBoolean("isBearSign"); err == nil {
		v.IsBearSign = b
		v.Parsed = true
	} else if s, err := obj.GetString("vote"); err == nil {
		v.IsBearSign = strings.EqualFold(strings.TrimSpace(s), "YES")
		v.Parsed = true
	} else {
		return Verdict{}
	}

	if c, ok := confidence(obj); ok {
		v.Confidence = c
	}
	v.DetectedType, _ = obj.GetString("detectedType")
	v.Reason, _ = obj.GetString("reason")
	return v
}

// ParseBinary reads a YES/NO answer. The first standalone YES or NO wins;
// a JSON verdict is also accepted. Anything else is NO.
func ParseBinary(reply string) Verdict {
	if v := ParseVerdict(reply); v.Parsed {
		return v
	}
	m := yesNo.FindStringSubmatch(reply)
	if m == nil {
		return Verdict{}
	}
	yes := strings.EqualFold(m[1], "YES")
	return Verdict{IsBearSign: yes, Parsed: true}
}

// confidence accepts 0-100 or a 0-1 fraction. Only a decimal literal such
// as 0.9 or 1.0 is a fraction; the integer 1 means 1%.
func confidence(obj *jason.Object) (int, bool) {
	v, err := obj.GetValue("confidence")
	if err != nil {
		return 0, false
	}
	n, err := v.Number()
	if err != nil {
		return 0, false
	}
	f, err := n.Float64()
	if err != nil || math.IsNaN(f) || f < 0 {
		return 0, false
	}
	if f <= 1 && strings.ContainsAny(n.String(), ".eE") {
		f *= 100
	}
	return int(math.Round(math.Min(f, 100))), true
}
