// services/interpreter.go
package services

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"estetica-voice-backend/models"
	"estetica-voice-backend/utils"
)

// TurnInput is one gather callback from the telephony provider: digits,
// transcribed speech, or both.
type TurnInput struct {
	CallSid      string
	Digits       string
	SpeechText   string
	Confidence   float64
	CallerNumber string
}

// Token is the typed result of interpreting one turn against the session's
// current step.
type Token interface{ token() }

type FamilyChoice struct {
	Family string
}

// ProductChoice carries a zero-based index into the active product list the
// caller was read.
type ProductChoice struct {
	Index int
}

type DateValue struct {
	Date time.Time
}

type TimeValue struct {
	Hour   int
	Minute int
}

const (
	NavRepeat = "repeat"
	NavBack   = "back"
)

type NavigationCommand struct {
	Action string
}

// NextAvailable asks for the earliest free slot instead of a concrete date.
type NextAvailable struct{}

const (
	IntentGreeting     = "greeting"
	IntentSchedule     = "schedule"
	IntentChangeFamily = "change_family"
	IntentInfo         = "info"
	IntentConfirm      = "confirm"
	IntentDeny         = "deny"
	IntentUnknown      = "unknown"
)

type FreeformIntent struct {
	Intent string
}

type Unrecognized struct{}

func (FamilyChoice) token()      {}
func (ProductChoice) token()     {}
func (DateValue) token()         {}
func (TimeValue) token()         {}
func (NavigationCommand) token() {}
func (NextAvailable) token()     {}
func (FreeformIntent) token()    {}
func (Unrecognized) token()      {}

var (
	spanishMonths = map[string]time.Month{
		"enero": time.January, "febrero": time.February, "marzo": time.March,
		"abril": time.April, "mayo": time.May, "junio": time.June,
		"julio": time.July, "agosto": time.August, "septiembre": time.September,
		"octubre": time.October, "noviembre": time.November, "diciembre": time.December,
	}
	spanishWeekdays = map[string]time.Weekday{
		"lunes": time.Monday, "martes": time.Tuesday,
		"miércoles": time.Wednesday, "miercoles": time.Wednesday,
		"jueves": time.Thursday, "viernes": time.Friday,
		"sábado": time.Saturday, "sabado": time.Saturday,
		"domingo": time.Sunday,
	}
	spelledHours = map[string]int{
		"una": 1, "uno": 1, "dos": 2, "tres": 3, "cuatro": 4, "cinco": 5,
		"seis": 6, "siete": 7, "ocho": 8, "nueve": 9, "diez": 10,
		"once": 11, "doce": 12,
	}

	numberRe    = regexp.MustCompile(`\d{1,2}`)
	clockRe     = regexp.MustCompile(`(\d{1,2})[:.](\d{2})`)
	slashDateRe = regexp.MustCompile(`(\d{1,2})/(\d{1,2})`)
)

// InterpretTurn resolves raw caller input into a typed token for the given
// step. Digits win over speech when both parse for the step; keypad and
// spoken navigation win over step content; unmatched non-empty speech
// degrades to a coarse freeform intent.
func InterpretTurn(step string, in TurnInput, products []models.Product) Token {
	digits := strings.TrimSpace(in.Digits)
	speech := normalizeSpeech(in.SpeechText)

	if nav := parseNavigation(step, digits, speech); nav != nil {
		return *nav
	}

	switch step {
	case models.StepWelcome, models.StepSelectingFamily:
		if tok := parseFamily(digits, speech); tok != nil {
			return tok
		}
	case models.StepSelectingProduct:
		if tok := parseProduct(digits, speech, products); tok != nil {
			return tok
		}
	case models.StepRequestingDate:
		if tok := parseDate(digits, speech, time.Now()); tok != nil {
			return tok
		}
	case models.StepRequestingTime:
		if tok := parseTime(digits, speech); tok != nil {
			return tok
		}
	}

	if speech != "" {
		return FreeformIntent{Intent: classifyIntent(speech)}
	}
	return FreeformIntent{Intent: IntentUnknown}
}

func normalizeSpeech(text string) string {
	text = strings.ToLower(strings.TrimSpace(text))
	return strings.Map(func(r rune) rune {
		switch r {
		// ':' stays so that "16:45" survives into time parsing.
		case '.', ',', ';', '!', '?', '¿', '¡':
			return -1
		}
		return r
	}, text)
}

func parseNavigation(step, digits, speech string) *NavigationCommand {
	if digits == "0" {
		if step == models.StepSelectingProduct {
			return &NavigationCommand{Action: NavBack}
		}
		return &NavigationCommand{Action: NavRepeat}
	}
	if containsWord(speech, "repetir") {
		return &NavigationCommand{Action: NavRepeat}
	}
	if containsWord(speech, "volver") || containsWord(speech, "regresar") {
		return &NavigationCommand{Action: NavBack}
	}
	return nil
}

func parseFamily(digits, speech string) Token {
	switch digits {
	case "1":
		return FamilyChoice{Family: models.FamilyFacial}
	case "2":
		return FamilyChoice{Family: models.FamilyHands}
	}
	if strings.Contains(speech, "facial") {
		return FamilyChoice{Family: models.FamilyFacial}
	}
	if strings.Contains(speech, "manos") {
		return FamilyChoice{Family: models.FamilyHands}
	}
	return nil
}

func parseProduct(digits, speech string, products []models.Product) Token {
	if digits != "" {
		if n, err := strconv.Atoi(digits); err == nil && n >= 1 && n <= len(products) {
			return ProductChoice{Index: n - 1}
		}
	}
	if speech != "" {
		for i, p := range products {
			if strings.Contains(speech, strings.ToLower(p.Name)) {
				return ProductChoice{Index: i}
			}
		}
	}
	return nil
}

func parseDate(digits, speech string, now time.Time) Token {
	if digits == "9" {
		return NextAvailable{}
	}
	if len(digits) == 4 {
		day, _ := strconv.Atoi(digits[0:2])
		month, _ := strconv.Atoi(digits[2:4])
		return buildDate(day, month, now)
	}
	if speech == "" {
		return nil
	}

	// Weekday names win over the "próximo" shortcut so that "el próximo
	// martes" asks for a Tuesday, not for the first free slot.
	for name, wd := range spanishWeekdays {
		if containsWord(speech, name) {
			return DateValue{Date: resolveWeekday(wd, speech, now)}
		}
	}
	if strings.Contains(speech, "próximo") || strings.Contains(speech, "proximo") ||
		strings.Contains(speech, "disponible") {
		return NextAvailable{}
	}
	if containsWord(speech, "hoy") {
		return DateValue{Date: utils.BeginningOfDay(now)}
	}
	if containsWord(speech, "mañana") {
		return DateValue{Date: utils.BeginningOfDay(now).AddDate(0, 0, 1)}
	}
	if m := slashDateRe.FindStringSubmatch(speech); m != nil {
		day, _ := strconv.Atoi(m[1])
		month, _ := strconv.Atoi(m[2])
		return buildDate(day, month, now)
	}
	// "20 de diciembre"
	for name, month := range spanishMonths {
		if containsWord(speech, name) {
			if dm := numberRe.FindString(speech); dm != "" {
				day, _ := strconv.Atoi(dm)
				return buildDate(day, int(month), now)
			}
		}
	}
	return nil
}

// buildDate assembles a calendar date in the current year, rolling one year
// forward when the result is already past. Out-of-range day/month values are
// unrecognized rather than normalized into a different date.
func buildDate(day, month int, now time.Time) Token {
	if month < 1 || month > 12 || day < 1 || day > 31 {
		return Unrecognized{}
	}
	d := time.Date(now.Year(), time.Month(month), day, 0, 0, 0, 0, now.Location())
	if d.Day() != day || d.Month() != time.Month(month) {
		return Unrecognized{}
	}
	if d.Before(utils.BeginningOfDay(now)) {
		d = d.AddDate(1, 0, 0)
	}
	return DateValue{Date: d}
}

func resolveWeekday(wd time.Weekday, speech string, now time.Time) time.Time {
	today := utils.BeginningOfDay(now)
	delta := (int(wd) - int(today.Weekday()) + 7) % 7
	explicitNext := strings.Contains(speech, "próximo") || strings.Contains(speech, "proximo") ||
		strings.Contains(speech, "siguiente")
	if delta == 0 && explicitNext {
		delta = 7
	}
	return today.AddDate(0, 0, delta)
}

func parseTime(digits, speech string) Token {
	if len(digits) == 4 {
		hour, _ := strconv.Atoi(digits[0:2])
		minute, _ := strconv.Atoi(digits[2:4])
		return buildTime(hour, minute)
	}
	if speech == "" {
		return nil
	}

	if m := clockRe.FindStringSubmatch(speech); m != nil {
		hour, _ := strconv.Atoi(m[1])
		minute, _ := strconv.Atoi(m[2])
		return buildTime(adjustMeridiem(hour, speech), minute)
	}

	hour := -1
	if h := numberRe.FindString(speech); h != "" {
		hour, _ = strconv.Atoi(h)
	} else {
		for word, h := range spelledHours {
			if containsWord(speech, word) {
				hour = h
				break
			}
		}
	}
	if hour < 0 {
		return nil
	}

	minute := 0
	if strings.Contains(speech, "media") {
		minute = 30
	} else if strings.Contains(speech, "cuarto") {
		minute = 15
	}

	return buildTime(adjustMeridiem(hour, speech), minute)
}

func adjustMeridiem(hour int, speech string) int {
	if (strings.Contains(speech, "tarde") || containsWord(speech, "pm")) && hour < 12 {
		return hour + 12
	}
	if (strings.Contains(speech, "mañana") || containsWord(speech, "am")) && hour >= 12 {
		return hour - 12
	}
	return hour
}

func buildTime(hour, minute int) Token {
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return Unrecognized{}
	}
	return TimeValue{Hour: hour, Minute: minute}
}

func classifyIntent(speech string) string {
	for _, g := range []string{"hola", "buenas", "buenos días", "buenos dias", "qué tal", "que tal", "hey"} {
		if strings.HasPrefix(speech, g) {
			return IntentGreeting
		}
	}
	for _, w := range []string{"agendar", "reservar", "cita", "reserva", "quiero", "me gustaría", "me gustaria"} {
		if strings.Contains(speech, w) {
			return IntentSchedule
		}
	}
	for _, w := range []string{"facial", "manos", "otro", "diferente", "cambiar"} {
		if strings.Contains(speech, w) {
			return IntentChangeFamily
		}
	}
	for _, w := range []string{"qué", "cuál", "información", "informacion", "servicios", "precio", "duración", "duracion", "cómo", "detalles"} {
		if strings.Contains(speech, w) {
			return IntentInfo
		}
	}
	for _, w := range []string{"sí", "si", "claro", "ok", "perfecto", "vale"} {
		if containsWord(speech, w) {
			return IntentConfirm
		}
	}
	for _, w := range []string{"no", "nope", "cancelar"} {
		if containsWord(speech, w) {
			return IntentDeny
		}
	}
	// Anything the caller actually said deserves a warm answer, not "unknown".
	return IntentInfo
}

func containsWord(text, word string) bool {
	for _, w := range strings.Fields(text) {
		if w == word {
			return true
		}
	}
	return false
}
