package triage

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Speaker tags one side of the nurse-patient conversation.
type Speaker string

const (
	SpeakerNurse   Speaker = "nurse"
	SpeakerPatient Speaker = "patient"
)

// Utterance is one turn of the conversation.
type Utterance struct {
	Speaker Speaker    `json:"speaker"`
	Text    string     `json:"text"`
	At      *time.Time `json:"at,omitempty"`
}

// Transcript is the immutable conversation handed to the engine.
type Transcript struct {
	Utterances []Utterance `json:"utterances"`
	Raw        string      `json:"raw"`
}

// Text renders the transcript as tagged lines for prompt assembly.
func (t Transcript) Text() string {
	if len(t.Utterances) == 0 {
		return t.Raw
	}
	var b strings.Builder
	for i, u := range t.Utterances {
		if i > 0 {
			b.WriteByte('\n')
		}
		switch u.Speaker {
		case SpeakerNurse:
			b.WriteString("Nurse: ")
		case SpeakerPatient:
			b.WriteString("Patient: ")
		}
		b.WriteString(u.Text)
	}
	return b.String()
}

// Empty reports whether there is any usable conversation text.
func (t Transcript) Empty() bool {
	return len(t.Utterances) == 0 && strings.TrimSpace(t.Raw) == ""
}

var speakerLine = regexp.MustCompile(`(?i)^\s*(nurse|patient)\s*[:>-]\s*(.*)$`)

// ParseTranscript splits a raw conversation blob into tagged utterances.
// Lines without a speaker tag continue the previous utterance; leading
// untagged text is attributed to the patient, since pasted complaints
// usually start with the patient's own words.
func ParseTranscript(raw string) (Transcript, error) {
	if strings.TrimSpace(raw) == "" {
		return Transcript{}, ErrEmptyTranscript
	}

	t := Transcript{Raw: raw}
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if m := speakerLine.FindStringSubmatch(line); m != nil {
			speaker := SpeakerPatient
			if strings.EqualFold(m[1], "nurse") {
				speaker = SpeakerNurse
			}
			t.Utterances = append(t.Utterances, Utterance{Speaker: speaker, Text: strings.TrimSpace(m[2])})
			continue
		}
		if n := len(t.Utterances); n > 0 {
			t.Utterances[n-1].Text = strings.TrimSpace(t.Utterances[n-1].Text + " " + line)
		} else {
			t.Utterances = append(t.Utterances, Utterance{Speaker: SpeakerPatient, Text: line})
		}
	}
	return t, nil
}

// VitalSigns holds values extracted from the conversation text. Zero values
// mean "not mentioned".
type VitalSigns struct {
	HeartRate        int     `json:"heart_rate,omitempty"`
	RespiratoryRate  int     `json:"respiratory_rate,omitempty"`
	OxygenSaturation int     `json:"oxygen_saturation,omitempty"`
	PainScore        int     `json:"pain_score,omitempty"`
	Temperature      float64 `json:"temperature,omitempty"`
	BloodPressure    string  `json:"blood_pressure,omitempty"`
}

// ClinicalData is a best-effort structured extraction used to enrich the
// detailed result. Agents always see the full transcript, never just this.
type ClinicalData struct {
	Age            int        `json:"age,omitempty"`
	ChiefComplaint string     `json:"chief_complaint,omitempty"`
	Vitals         VitalSigns `json:"vital_signs"`
	Symptoms       []string   `json:"symptoms,omitempty"`
}

var (
	ageRe  = regexp.MustCompile(`(\d+)[\s-]*(?:year|yr)s?[\s-]*old`)
	tempRe = regexp.MustCompile(`(?:temp|temperature)[:\s]*(\d+\.?\d*)`)
	hrRe   = regexp.MustCompile(`(?:hr|heart rate|pulse)[:\s]*(\d+)`)
	rrRe   = regexp.MustCompile(`(?:rr|resp|respiratory rate)[:\s]*(\d+)`)
	bpRe   = regexp.MustCompile(`(?:bp|blood pressure)[:\s]*(\d+)[/](\d+)`)
	spo2Re = regexp.MustCompile(`(?:o2|oxygen|sat|saturation)[:\s]*(\d+)`)
	painRe = regexp.MustCompile(`pain[^.]*?(\d+)(?:/10)?`)
)

var symptomCategories = map[string][]string{
	"respiratory":      {"cough", "shortness of breath", "sob", "dyspnea", "wheezing"},
	"cardiac":          {"chest pain", "palpitations", "syncope", "edema"},
	"neurological":     {"headache", "dizziness", "numbness", "tingling", "seizure"},
	"gastrointestinal": {"nausea", "vomiting", "diarrhea", "constipation", "abdominal pain"},
	"musculoskeletal":  {"joint pain", "back pain", "fracture", "sprain", "injury"},
	"general":          {"fever", "fatigue", "weakness", "malaise"},
}

// ExtractClinicalData pulls age, vitals and symptom categories out of the
// conversation with simple pattern matching.
func ExtractClinicalData(t Transcript) ClinicalData {
	text := strings.ToLower(t.Text())
	data := ClinicalData{}

	if m := ageRe.FindStringSubmatch(text); m != nil {
		data.Age, _ = strconv.Atoi(m[1])
	}
	if m := tempRe.FindStringSubmatch(text); m != nil {
		data.Vitals.Temperature, _ = strconv.ParseFloat(m[1], 64)
	}
	if m := hrRe.FindStringSubmatch(text); m != nil {
		data.Vitals.HeartRate, _ = strconv.Atoi(m[1])
	}
	if m := rrRe.FindStringSubmatch(text); m != nil {
		data.Vitals.RespiratoryRate, _ = strconv.Atoi(m[1])
	}
	if m := bpRe.FindStringSubmatch(text); m != nil {
		data.Vitals.BloodPressure = m[1] + "/" + m[2]
	}
	if m := spo2Re.FindStringSubmatch(text); m != nil {
		data.Vitals.OxygenSaturation, _ = strconv.Atoi(m[1])
	}
	if m := painRe.FindStringSubmatch(text); m != nil {
		if score, err := strconv.Atoi(m[1]); err == nil && score <= 10 {
			data.Vitals.PainScore = score
		}
	}

	for category, keywords := range symptomCategories {
		for _, kw := range keywords {
			if strings.Contains(text, kw) {
				data.Symptoms = append(data.Symptoms, category)
				break
			}
		}
	}
	sort.Strings(data.Symptoms)

	for _, u := range t.Utterances {
		if u.Speaker == SpeakerPatient {
			data.ChiefComplaint = u.Text
			break
		}
	}

	return data
}
