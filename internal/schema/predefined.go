package schema

func str(name, desc string) PropertyDef {
	return PropertyDef{Name: name, Type: TypeString, Description: desc}
}

func ts(desc string) PropertyDef {
	return PropertyDef{Name: "timestamp", Type: TypeDateTime, Description: desc}
}

func embed(key string) PropertyDef {
	return PropertyDef{Name: EmbedField, Type: TypeFloatList, Description: "Embedding vector of the node's " + key + " or description."}
}

const keyRule = "Lowercase English words joined by underscores, no digits."

func predefinedNodes() []NodeType {
	return []NodeType{
		{
			Label:      "ExperientialScene",
			PrimaryKey: "scene_name",
			Properties: []PropertyDef{
				str("scene_name", "Unique scene identifier. "+keyRule+" e.g. kyoto_bamboo_forest_morning"),
				str("description", "Core description of the scene."),
				ts("When the scene took place."),
				str("location_text", "Free-text location of the scene, optional."),
				embed("scene_name"),
			},
		},
		{
			Label:      "FocalObservation",
			PrimaryKey: "observation_name",
			Properties: []PropertyDef{
				str("observation_name", "Unique observation identifier. "+keyRule+" e.g. mossy_stone_detail"),
				str("observed_element", "The specific element that was observed."),
				str("significance", "Why the observation matters, optional."),
				ts("When the observation was made."),
				embed("observation_name"),
			},
		},
		{
			Label:      "AffectiveResonance",
			PrimaryKey: "resonance_name",
			Properties: []PropertyDef{
				str("resonance_name", "Unique resonance identifier. "+keyRule+" e.g. awe_at_mountain_view"),
				str("emotion_label", "Core emotion, e.g. Peaceful or Awe."),
				str("trigger_description", "What triggered the emotion, optional."),
				ts("When the emotion was experienced."),
				embed("resonance_name"),
			},
		},
		{
			Label:      "NarrativeAnchor",
			PrimaryKey: "anchor_name",
			Properties: []PropertyDef{
				str("anchor_name", "Unique anchor identifier. "+keyRule+" e.g. theme_of_solitude"),
				str("theme_summary", "Short summary of the recurring theme."),
				str("pattern_description", "Context for the narrative pattern, optional."),
				ts("When the anchor was created or last updated."),
				embed("anchor_name"),
			},
		},
		{
			Label:      "InteractionPoint",
			PrimaryKey: "interaction_name",
			Properties: []PropertyDef{
				str("interaction_name", "Unique interaction identifier. "+keyRule+" e.g. chat_with_local_guide"),
				str("action_description", "What the interaction was."),
				str("outcome_summary", "Outcome of the interaction, optional."),
				ts("When the interaction happened."),
				embed("interaction_name"),
			},
		},
		{
			Label:      "DigitalAsset",
			PrimaryKey: "asset_name",
			Properties: []PropertyDef{
				str("asset_name", "Unique asset identifier. "+keyRule+" e.g. img_paris_eiffel_tower"),
				str("description", "Description of the asset."),
				str("file_id", "Identifier of the stored file."),
				str("media_type", "Media type such as image or text."),
				ts("When the asset was created."),
				embed("asset_name"),
			},
		},
		{
			Label:      "City",
			PrimaryKey: "city_name",
			Properties: []PropertyDef{
				str("city_name", "City name in English, lowercase with underscores."),
				str("chinese_name", "City name in Chinese."),
				str("description", "Short description of the city."),
				embed("city_name"),
			},
		},
		{
			Label:      "Province",
			PrimaryKey: "province_name",
			Properties: []PropertyDef{
				str("province_name", "Province name in English, lowercase with underscores."),
				str("chinese_name", "Province name in Chinese."),
				str("description", "Short description of the province."),
				embed("province_name"),
			},
		},
		{
			Label:      "Season",
			PrimaryKey: "season_name",
			Properties: []PropertyDef{
				str("season_name", "Season name: spring, summer, autumn or winter."),
				str("chinese_name", "Season name in Chinese."),
				str("description", "Short description of the season."),
				embed("season_name"),
			},
		},
	}
}

func rel(t string, sources, targets []string, extra ...PropertyDef) RelationshipType {
	props := append([]PropertyDef{str("id", "Unique relationship identifier.")}, extra...)
	return RelationshipType{
		Type:         t,
		PrimaryKey:   "id",
		SourceLabels: sources,
		TargetLabels: targets,
		Properties:   props,
	}
}

func predefinedRelationships() []RelationshipType {
	asset := []string{"DigitalAsset"}
	scene := []string{"ExperientialScene"}
	return []RelationshipType{
		rel("OBSERVED_IN", []string{"FocalObservation"}, scene,
			PropertyDef{Name: "timestamp_in_scene", Type: TypeDateTime, Description: "Point in the scene when the observation happened."}),
		rel("TRIGGERED_BY", []string{"AffectiveResonance"}, []string{"ExperientialScene", "FocalObservation", "InteractionPoint"}),
		rel("OCCURRED_DURING", []string{"InteractionPoint"}, scene),
		rel("CONTRIBUTES_TO", []string{"ExperientialScene", "FocalObservation", "AffectiveResonance", "InteractionPoint"}, []string{"NarrativeAnchor"}),
		rel("CONSTRUCTED_FROM_ASSET", scene, asset),
		rel("IDENTIFIED_IN_ASSET", []string{"FocalObservation"}, asset,
			str("roi_coordinates", "Region of interest inside the asset.")),
		rel("EXTRACTED_FROM_ASSET", []string{"AffectiveResonance"}, asset,
			str("text_snippet", "Text fragment the resonance was extracted from.")),
		rel("DOCUMENTED_BY_ASSET", []string{"InteractionPoint"}, asset),
		rel("LOCATED_IN_CITY", scene, []string{"City"}),
		rel("BELONGS_TO_PROVINCE", []string{"City"}, []string{"Province"}),
		rel("OCCURRED_IN_SEASON", scene, []string{"Season"}),
	}
}

// Predefined returns the built-in travel memory schema.
func Predefined() *Registry {
	r, err := New(predefinedNodes(), predefinedRelationships())
	if err != nil {
		panic("schema: predefined schema is invalid: " + err.Error())
	}
	return r
}
