package commands

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/forbill/whatsapp-vtu/pkg/money"
	"github.com/forbill/whatsapp-vtu/pkg/phone"
)

const (
	DefaultMinAirtime = 50
	DefaultMaxAirtime = 50000

	// minElectricityAmount is the smallest number accepted as an electricity
	// amount; smaller numbers are ignored rather than rejected.
	minElectricityAmount = 100
)

var (
	greetingPatterns = compile(
		`^(?:hi|hello|hey|start|good ?(?:morning|afternoon|evening))$`,
	)
	greetingWithCode = regexp.MustCompile(`^start ([a-z0-9]{8})$`)
	helpPatterns     = compile(`^(?:help|menu|options|commands|what can you do)$`)
	balancePatterns  = compile(
		`^(?:balance|check balance|my balance|wallet|check wallet)$`,
		`^bal$`,
	)
	historyPatterns = compile(
		`^(?:history|transactions|my transactions|transaction history)$`,
		`^txns?$`,
	)
	referralPatterns = compile(
		`^(?:referral|refer|my referral|referral code|invite)$`,
		`^ref code$`,
	)

	// Order matters: the forms carrying a destination phone come first.
	airtimePatterns = compile(
		`(?:buy )?(\d+) ?(?:naira )?airtime for ((?:0|234)\d{10})`,
		`airtime (\d+) (?:for|to) ((?:0|234)\d{10})`,
		`(?:buy )?(\d+) ?(?:naira )?airtime`,
		`airtime (?:of )?(\d+)`,
		`(?:buy )?airtime (?:for )?(\d+)`,
		`(?:recharge|top ?up) (\d+)`,
	)
	bareAirtime = regexp.MustCompile(`^(?:buy |get )?(?:airtime|recharge|top ?up)$`)

	bareData     = regexp.MustCompile(`^(?:buy data|get data|data bundles?|data)$`)
	dataPatterns = compile(
		`(\d+(?:\.\d+)?)(gb|mb) (mtn|glo|airtel|9mobile) (?:for|to) ((?:0|234)\d{10})`,
		`(?:buy )?(\d+(?:\.\d+)?)(gb|mb) (mtn|glo|airtel|9mobile)`,
		`(mtn|glo|airtel|9mobile) (\d+(?:\.\d+)?)(gb|mb)`,
	)
	sizePattern    = regexp.MustCompile(`^\d+(?:\.\d+)?$`)
	networkPattern = regexp.MustCompile(`^(?:mtn|glo|airtel|9mobile)$`)
	phonePattern   = regexp.MustCompile(`^(?:0|234)\d{10}$`)

	bareElectricity = regexp.MustCompile(
		`^(?:buy electricity|electricity|light bill|pay light|nepa|ekedc|ikedc)$`,
	)
	electricityPatterns = compile(
		`(?:buy|pay) (\d+) (?:electricity|light)`,
		`(\d+) (?:naira )?(?:electricity|light)`,
	)
	meterPattern = regexp.MustCompile(`\b(\d{11,13})\b`)
	discoPattern = regexp.MustCompile(`\b(ikedc|ekedc|aedc|phed|ibedc|kedco|kaedco|jed|eedc|bedc|yedc)\b`)

	bareCable     = regexp.MustCompile(`^(cable|tv|dstv|gotv|startimes)$`)
	cablePattern  = regexp.MustCompile(`(?:pay|subscribe|renew) (dstv|gotv|startimes)`)
	smartcardTail = regexp.MustCompile(`^\D*?\b(\d{10,12})\b`)
)

func compile(patterns ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		out = append(out, regexp.MustCompile(p))
	}
	return out
}

// Parser classifies messages. It holds no per-message state and is safe for
// concurrent use.
type Parser struct {
	minAirtime int64
	maxAirtime int64
}

func NewParser(minAirtime, maxAirtime int64) *Parser {
	if minAirtime <= 0 {
		minAirtime = DefaultMinAirtime
	}
	if maxAirtime < minAirtime {
		maxAirtime = DefaultMaxAirtime
	}
	return &Parser{minAirtime: minAirtime, maxAirtime: maxAirtime}
}

// Normalize lower-cases, trims and collapses internal whitespace runs.
func Normalize(text string) string {
	return strings.Join(strings.Fields(strings.ToLower(text)), " ")
}

// Parse runs the match ladder: fixed phrases, then airtime, data,
// electricity and cable. The first match wins.
func (p *Parser) Parse(text string) Command {
	msg := Normalize(text)
	if msg == "" {
		return unknown(msg)
	}

	if m := greetingWithCode.FindStringSubmatch(msg); m != nil {
		return Command{Type: TypeGreeting, Confidence: ConfidenceHigh, Text: msg, ReferralCode: strings.ToUpper(m[1])}
	}

	fixed := []struct {
		typ      Type
		patterns []*regexp.Regexp
	}{
		{TypeGreeting, greetingPatterns},
		{TypeHelp, helpPatterns},
		{TypeBalance, balancePatterns},
		{TypeHistory, historyPatterns},
		{TypeReferral, referralPatterns},
	}
	for _, f := range fixed {
		if matchAny(msg, f.patterns) {
			return Command{Type: f.typ, Confidence: ConfidenceHigh, Text: msg}
		}
	}

	if cmd, ok := p.parseAirtime(msg); ok {
		return cmd
	}
	if cmd, ok := parseData(msg); ok {
		return cmd
	}
	if cmd, ok := parseElectricity(msg); ok {
		return cmd
	}
	if cmd, ok := parseCable(msg); ok {
		return cmd
	}
	return unknown(msg)
}

func (p *Parser) parseAirtime(msg string) (Command, bool) {
	if bareAirtime.MatchString(msg) {
		return Command{Type: TypeAirtime, Confidence: ConfidenceMedium, Text: msg}, true
	}

	for _, re := range airtimePatterns {
		m := re.FindStringSubmatch(msg)
		if m == nil {
			continue
		}
		cmd := Command{Type: TypeAirtime, Confidence: ConfidenceHigh, Text: msg}

		amount, err := strconv.ParseInt(m[1], 10, 64)
		if err != nil {
			// only overflow can fail here; treat as above the maximum
			amount = math.MaxInt64
		}
		switch {
		case amount < p.minAirtime:
			cmd.Confidence = ConfidenceLow
			cmd.Error = "Amount too low. Minimum is " + money.FormatWhole(p.minAirtime)
		case amount > p.maxAirtime:
			cmd.Confidence = ConfidenceLow
			cmd.Error = "Amount too high. Maximum is " + money.FormatWhole(p.maxAirtime)
		default:
			cmd.Amount = amount
		}

		if len(m) > 2 && m[2] != "" {
			if normalized, err := phone.Normalize(m[2]); err == nil {
				cmd.Phone = normalized
			}
		}
		return cmd, true
	}
	return Command{}, false
}

func parseData(msg string) (Command, bool) {
	if bareData.MatchString(msg) {
		return Command{Type: TypeData, Confidence: ConfidenceMedium, Text: msg}, true
	}

	for _, re := range dataPatterns {
		m := re.FindStringSubmatch(msg)
		if m == nil {
			continue
		}
		cmd := Command{Type: TypeData, Confidence: ConfidenceMedium, Text: msg}

		var size float64
		var unit string
		for _, g := range m[1:] {
			switch {
			case g == "":
			case sizePattern.MatchString(g) && !phonePattern.MatchString(g):
				size, _ = strconv.ParseFloat(g, 64)
			case g == "gb" || g == "mb":
				unit = g
			case networkPattern.MatchString(g):
				cmd.Network = g
			case phonePattern.MatchString(g):
				if normalized, err := phone.Normalize(g); err == nil {
					cmd.Phone = normalized
				}
			}
		}

		if size > 0 && unit != "" {
			display := formatSize(size)
			if unit == "gb" {
				cmd.DataSizeMB = int(size * 1024)
				cmd.DataSizeDisplay = display + "GB"
			} else {
				cmd.DataSizeMB = int(size)
				cmd.DataSizeDisplay = display + "MB"
			}
			cmd.Confidence = ConfidenceHigh
		}
		return cmd, true
	}
	return Command{}, false
}

// formatSize always keeps a fractional part: 1 -> "1.0", 1.5 -> "1.5".
func formatSize(size float64) string {
	s := strconv.FormatFloat(size, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

func parseElectricity(msg string) (Command, bool) {
	if bareElectricity.MatchString(msg) {
		cmd := Command{Type: TypeElectricity, Confidence: ConfidenceMedium, Text: msg}
		if m := discoPattern.FindStringSubmatch(msg); m != nil {
			cmd.Disco = m[1]
		}
		return cmd, true
	}

	for _, re := range electricityPatterns {
		loc := re.FindStringSubmatchIndex(msg)
		if loc == nil {
			continue
		}
		cmd := Command{Type: TypeElectricity, Confidence: ConfidenceMedium, Text: msg}
		if amount, err := strconv.ParseInt(msg[loc[2]:loc[3]], 10, 64); err == nil && amount >= minElectricityAmount {
			cmd.Amount = amount
			cmd.Confidence = ConfidenceHigh
		}

		rest := msg[loc[1]:]
		if m := meterPattern.FindStringSubmatch(rest); m != nil {
			cmd.MeterNumber = m[1]
		}
		if m := discoPattern.FindStringSubmatch(rest); m != nil {
			cmd.Disco = m[1]
		}
		return cmd, true
	}
	return Command{}, false
}

func parseCable(msg string) (Command, bool) {
	if m := bareCable.FindStringSubmatch(msg); m != nil {
		cmd := Command{Type: TypeCableTV, Confidence: ConfidenceMedium, Text: msg}
		if m[1] != "cable" && m[1] != "tv" {
			cmd.Provider = m[1]
		}
		return cmd, true
	}

	loc := cablePattern.FindStringSubmatchIndex(msg)
	if loc == nil {
		return Command{}, false
	}
	cmd := Command{
		Type:       TypeCableTV,
		Confidence: ConfidenceHigh,
		Text:       msg,
		Provider:   msg[loc[2]:loc[3]],
	}
	if m := smartcardTail.FindStringSubmatch(msg[loc[1]:]); m != nil {
		cmd.Smartcard = m[1]
	}
	return cmd, true
}

func matchAny(msg string, patterns []*regexp.Regexp) bool {
	for _, re := range patterns {
		if re.MatchString(msg) {
			return true
		}
	}
	return false
}

func unknown(msg string) Command {
	return Command{Type: TypeUnknown, Confidence: ConfidenceLow, Text: msg}
}
