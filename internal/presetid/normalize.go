package presetid

import "strings"

// Normalize canonicalizes biomass and pretreatment preset names and their
// common aliases to the snake_case keys used by the preset tables. Unknown
// names are returned in snake_case form.
func Normalize(name string) string {
	normalized := strings.TrimSpace(strings.ToLower(name))
	normalized = strings.NewReplacer("-", "_", " ", "_").Replace(normalized)
	normalized = strings.Trim(normalized, "_")
	if normalized == "" {
		return ""
	}
	if canonical, ok := normalizeKnownAlias(normalized); ok {
		return canonical
	}
	return normalized
}

func normalizeKnownAlias(normalized string) (string, bool) {
	for _, candidate := range aliasCandidates(normalized) {
		if canonical, ok := canonicalPresetName(candidate); ok {
			return canonical, true
		}
	}
	return "", false
}

// aliasCandidates strips a leading "biomass_" or "pretreatment_" and a
// trailing "_pretreatment".
func aliasCandidates(normalized string) []string {
	candidates := []string{normalized}
	candidate := normalized
	for _, prefix := range []string{"biomass_", "pretreatment_"} {
		candidate = strings.TrimPrefix(candidate, prefix)
	}
	if candidate != normalized && candidate != "" {
		candidates = append(candidates, candidate)
	}
	trimmed := strings.TrimSuffix(candidate, "_pretreatment")
	if trimmed != candidate && trimmed != "" {
		candidates = append(candidates, trimmed)
	}
	return candidates
}

func canonicalPresetName(alias string) (string, bool) {
	switch strings.ReplaceAll(alias, "_", "") {
	case "ricestraw", "rice":
		return "rice_straw", true
	case "wheatstraw", "wheat":
		return "wheat_straw", true
	case "cornstover", "stover", "corn":
		return "corn_stover", true
	case "bagasse", "sugarcanebagasse", "sugarcane":
		return "bagasse", true
	case "simplecrushing", "crushing", "milling", "none":
		return "simple_crushing", true
	case "mildhydrothermal", "hydrothermal", "lhw", "liquidhotwater":
		return "mild_hydrothermal", true
	case "steamexplosion", "steam", "steamexploded":
		return "steam_explosion", true
	default:
		return "", false
	}
}
