package presetid

import "testing"

func TestNormalize(t *testing.T) {
	cases := map[string]string{
		"rice_straw":         "rice_straw",
		"Rice Straw":         "rice_straw",
		"RICE-STRAW":         "rice_straw",
		"biomass_rice_straw": "rice_straw",
		"wheat":              "wheat_straw",
		"Corn Stover":        "corn_stover",
		"stover":             "corn_stover",
		"Sugarcane Bagasse":  "bagasse",
		"simple_crushing":    "simple_crushing",
		"milling":            "simple_crushing",
		"Mild Hydrothermal":  "mild_hydrothermal",
		"LHW":                "mild_hydrothermal",
		"steam":              "steam_explosion",
		"steam_explosion":    "steam_explosion",
		"steam pretreatment": "steam_explosion",
		"pretreatment_steam": "steam_explosion",
		"Switchgrass":        "switchgrass",
		"  custom-mix  ":     "custom_mix",
		"":                   "",
	}

	for in, want := range cases {
		if got := Normalize(in); got != want {
			t.Fatalf("normalize(%q)=%q want=%q", in, got, want)
		}
	}
}
