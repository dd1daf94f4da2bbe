package simulation

import (
	"strconv"

	"github.com/BerylCAtieno/synthsense-agent/internal/persona"
)

// DemographicFields are the attributes sliced in the property distribution.
var DemographicFields = []string{"age", "income_level", "gender", "relationship_status"}

// fieldAliases lists keys tried when a demographic field is absent. Cohort
// generation emits "sex" rather than "gender".
var fieldAliases = map[string][]string{
	"gender": {"sex"},
}

// Classify maps a Likert score onto its sentiment bucket.
func Classify(score int) Sentiment {
	switch {
	case score >= 4:
		return Adopt
	case score == 3:
		return Mixed
	default:
		return Not
	}
}

// Breakdown counts scores per bucket with percentages to one decimal place.
// An empty score list yields zero counts and "0.0" everywhere.
func Breakdown(scores []int) SentimentBreakdown {
	counts := map[Sentiment]int{}
	for _, s := range scores {
		counts[Classify(s)]++
	}

	total := len(scores)
	stat := func(s Sentiment) BucketStat {
		if total == 0 {
			return BucketStat{Count: 0, Percentage: "0.0"}
		}
		pct := float64(counts[s]) / float64(total) * 100
		return BucketStat{Count: counts[s], Percentage: strconv.FormatFloat(pct, 'f', 1, 64)}
	}

	return SentimentBreakdown{
		Adopt: stat(Adopt),
		Mixed: stat(Mixed),
		Not:   stat(Not),
	}
}

// Distribute counts demographic values per sentiment bucket. Every bucket is
// present; a bucket's fields are present once it has a response.
func Distribute(responses []PersonaResponse) PropertyDistribution {
	dist := PropertyDistribution{}
	for _, s := range Sentiments {
		dist[s] = map[string]map[string]int{}
	}

	for _, r := range responses {
		bucket := dist[Classify(r.Score)]
		for _, field := range DemographicFields {
			if bucket[field] == nil {
				bucket[field] = map[string]int{}
			}
			bucket[field][demographicValue(r.Attributes, field)]++
		}
	}
	return dist
}

func lookupDemographic(attrs persona.Attributes, field string) (any, bool) {
	if v, ok := attrs.Get(field); ok {
		return v, true
	}
	for _, alias := range fieldAliases[field] {
		if v, ok := attrs.Get(alias); ok {
			return v, true
		}
	}
	return nil, false
}

func demographicValue(attrs persona.Attributes, field string) string {
	if v, ok := lookupDemographic(attrs, field); ok {
		return persona.FormatValue(v)
	}
	return "N/A"
}

// MissingDemographics reports, per demographic field, how many personas lack
// it (after aliasing). Fields every persona carries are omitted.
func MissingDemographics(personas []persona.Persona) map[string]int {
	missing := map[string]int{}
	for _, p := range personas {
		for _, field := range DemographicFields {
			if _, ok := lookupDemographic(p.Attributes, field); !ok {
				missing[field]++
			}
		}
	}
	return missing
}
