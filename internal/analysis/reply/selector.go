// Package reply picks the persona's fallback answer from curated template
// pools, conditioned on the empathy level and the classified emotion.
package reply

import (
	"math/rand/v2"
	"strings"
	"sync"
	"unicode"
	"unicode/utf8"

	"github.com/zhouzirui/sky-inn/backend/internal/analysis/emotion"
)

// Bucket is a coarse empathy band.
type Bucket string

const (
	Low  Bucket = "low"
	Mid  Bucket = "mid"
	High Bucket = "high"
)

// BucketOf maps a level to its band: low <45, mid 45..60, high >60.
func BucketOf(level int) Bucket {
	switch {
	case level < 45:
		return Low
	case level <= 60:
		return Mid
	default:
		return High
	}
}

// IronicMarkers are the distancing cues every low-bucket reply carries.
var IronicMarkers = []string{"*", "как... любопытно", "прищури"}

// SupportiveMarkers are the validating phrases every high-bucket reply to
// distress carries.
var SupportiveMarkers = []string{"понимание", "забота", "не волнуйтесь", "доверьтесь"}

const (
	distancingCue   = "*прищуривается* "
	supportiveCoda  = " Я рядом, не волнуйтесь."
	sceneTurnsLimit = 3
)

var sceneOpeners = []string{
	"Что ж, раз мы в такой ситуации... ",
	"Интересный поворот событий! ",
	"Хм, в таком случае... ",
}

// Picker draws a uniform index in [0, n).
type Picker interface {
	IntN(n int) int
}

// RandPicker is a seedable Picker safe for concurrent use.
type RandPicker struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

// NewRandPicker seeds a PCG generator.
func NewRandPicker(seed uint64) *RandPicker {
	return &RandPicker{rnd: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

// IntN implements Picker.
func (p *RandPicker) IntN(n int) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.rnd.IntN(n)
}

// Selector chooses replies. It keeps no state besides the picker.
type Selector struct {
	pools  Pools
	picker Picker
}

// NewSelector builds a selector. Nil pools use DefaultPools; a nil picker
// uses an unseeded generator.
func NewSelector(pools Pools, picker Picker) *Selector {
	if pools == nil {
		pools = DefaultPools()
	}
	if picker == nil {
		picker = NewRandPicker(rand.Uint64())
	}
	return &Selector{pools: pools, picker: picker}
}

// Select returns a reply for text at the given empathy level and emotion.
func (s *Selector) Select(text string, level int, tag emotion.Tag) string {
	return s.SelectInScene(text, level, tag, "", 0)
}

// SelectInScene is Select with scene framing: general replies early in a
// chat that has a scenario open with a scene remark.
func (s *Selector) SelectInScene(text string, level int, tag emotion.Tag, scenario string, turns int) string {
	bucket := BucketOf(level)
	category := s.category(bucket, tag)
	reply := s.pick(s.pools.lookup(bucket, category))

	if category == emotion.General && strings.TrimSpace(scenario) != "" && turns < sceneTurnsLimit {
		reply = s.pick(sceneOpeners) + lowerFirst(reply)
	}

	switch {
	case bucket == Low && !containsMarker(reply, IronicMarkers):
		reply = distancingCue + reply
	case bucket == High && emotion.HasDistress(tag) && !containsMarker(reply, SupportiveMarkers):
		reply = strings.TrimRight(reply, " ") + supportiveCoda
	}
	return reply
}

// Greeting returns an opening line from the persona's list.
func (s *Selector) Greeting(greetings []string) string {
	if len(greetings) == 0 {
		return s.pick(s.pools.lookup(Mid, emotion.Greeting))
	}
	return s.pick(greetings)
}

func (s *Selector) category(bucket Bucket, tag emotion.Tag) emotion.Tag {
	if emotion.HasDistress(tag) {
		return emotion.Sadness
	}
	if _, ok := s.pools[bucket][tag]; ok {
		return tag
	}
	for _, candidate := range []emotion.Tag{emotion.Greeting, emotion.Food, emotion.Cooking, emotion.Self} {
		if tag.Contains(candidate) {
			return candidate
		}
	}
	return emotion.General
}

func (s *Selector) pick(pool []string) string {
	if len(pool) == 0 {
		return ""
	}
	return pool[s.picker.IntN(len(pool))]
}

func containsMarker(text string, markers []string) bool {
	lowered := strings.ToLower(text)
	for _, marker := range markers {
		if strings.Contains(lowered, marker) {
			return true
		}
	}
	return false
}

func lowerFirst(text string) string {
	r, size := utf8.DecodeRuneInString(text)
	if r == utf8.RuneError {
		return text
	}
	return string(unicode.ToLower(r)) + text[size:]
}
