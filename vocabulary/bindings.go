package vocabulary

// Declarative descriptor tables for the compliance domain. One table per
// entity type replaces the per-entity predicate-map literals the GraphQL
// layer would otherwise repeat for every resolver.
//
// Predicate naming follows dotted three-level notation: domain.category.property.

// Core lifecycle predicates shared by every entity type.
const (
	PredID       = "core.meta.id"
	PredType     = "core.meta.type"
	PredCreated  = "core.lifecycle.created"
	PredModified = "core.lifecycle.modified"
)

// Relationship predicates.
const (
	PredRiskCharacterizations = "risk.rel.characterizations"
	PredRiskOrigins           = "risk.rel.origins"
	PredRiskRemediations      = "risk.rel.remediations"
	PredRelatedObservations   = "risk.rel.related_observations"
	PredRelatedRisks          = "poam.rel.related_risks"
	PredPOAMObservations      = "poam.rel.related_observations"
	PredRelLabels             = "core.rel.labels"
	PredRelNotes              = "core.rel.notes"
	PredRelMarkings           = "core.rel.object_markings"
)

// Scoring facet predicates carried by characterization entities.
const (
	PredCVSS2Base     = "characterization.cvss2.base_score"
	PredCVSS2Temporal = "characterization.cvss2.temporal_score"
	PredCVSS3Base     = "characterization.cvss3.base_score"
	PredCVSS3Temporal = "characterization.cvss3.temporal_score"
)

// Remediation facet predicates.
const (
	PredResponseType = "remediation.info.response_type"
	PredLifecycle    = "remediation.info.lifecycle"
)

// SubjectContextTarget is the sentinel subject context counted by the
// occurrences aggregate.
const SubjectContextTarget = "target"

// coreBindings returns the field bindings every entity type carries.
func coreBindings() map[string]FieldBinding {
	return map[string]FieldBinding{
		FieldID:         {Predicate: PredID, Kind: KindString},
		FieldEntityType: {Predicate: PredType, Kind: KindString},
		FieldCreated:    {Predicate: PredCreated, Kind: KindDateTime},
		FieldModified:   {Predicate: PredModified, Kind: KindDateTime},
	}
}

// withCore merges entity-specific bindings over the core set.
func withCore(bindings map[string]FieldBinding) map[string]FieldBinding {
	merged := coreBindings()
	for k, v := range bindings {
		merged[k] = v
	}
	return merged
}

func defaultDescriptors() []*EntityDescriptor {
	return []*EntityDescriptor{
		assetDescriptor(),
		riskDescriptor(),
		observationDescriptor(),
		characterizationDescriptor(),
		originDescriptor(),
		remediationDescriptor(),
		noteDescriptor(),
		labelDescriptor(),
		markingDescriptor(),
		poamItemDescriptor(),
	}
}

func assetDescriptor() *EntityDescriptor {
	return &EntityDescriptor{
		Type:         TypeAsset,
		ClassMarkers: []string{"core.class.asset"},
		Bindings: withCore(map[string]FieldBinding{
			"name":          {Predicate: "asset.info.name", Kind: KindString},
			"description":   {Predicate: "asset.info.description", Kind: KindString, Optional: true},
			"asset_type":    {Predicate: "asset.info.asset_type", Kind: KindString},
			"serial_number": {Predicate: "asset.info.serial_number", Kind: KindString, Optional: true},
			"vendor_name":   {Predicate: "asset.info.vendor_name", Kind: KindString, Optional: true},
			"version":       {Predicate: "asset.info.version", Kind: KindString, Optional: true},
			"implementation_point": {
				Predicate: "asset.info.implementation_point", Kind: KindString, Optional: true,
			},
			"labels":   {Predicate: PredRelLabels, Kind: KindIRI, Multi: true, Optional: true},
			"notes":    {Predicate: PredRelNotes, Kind: KindIRI, Multi: true, Optional: true},
			"markings": {Predicate: PredRelMarkings, Kind: KindIRI, Multi: true, Optional: true},
		}),
		NaturalKeys: []string{"name", "asset_type"},
		Referenced: map[string]EntityType{
			"labels":   TypeLabel,
			"notes":    TypeNote,
			"markings": TypeMarking,
		},
		Enums: map[string][]string{
			"asset_type": {"hardware", "software", "network", "data", "service"},
			"implementation_point": {"internal", "external"},
		},
	}
}

func riskDescriptor() *EntityDescriptor {
	return &EntityDescriptor{
		Type:         TypeRisk,
		ClassMarkers: []string{"core.class.risk"},
		Bindings: withCore(map[string]FieldBinding{
			"name":        {Predicate: "risk.info.name", Kind: KindString},
			"description": {Predicate: "risk.info.description", Kind: KindString, Optional: true},
			"statement":   {Predicate: "risk.info.statement", Kind: KindString, Optional: true},
			"risk_status": {Predicate: "risk.info.status", Kind: KindString},
			"deadline":    {Predicate: "risk.info.deadline", Kind: KindDateTime, Optional: true},
			"priority":    {Predicate: "risk.info.priority", Kind: KindNumber, Optional: true},
			"accepted": {
				Predicate: "risk.flag.accepted", Kind: KindBoolean, Optional: true, Default: "false",
			},
			"false_positive": {
				Predicate: "risk.flag.false_positive", Kind: KindBoolean, Optional: true, Default: "false",
			},
			"risk_adjusted": {
				Predicate: "risk.flag.risk_adjusted", Kind: KindBoolean, Optional: true, Default: "false",
			},
			"vendor_dependency": {
				Predicate: "risk.flag.vendor_dependency", Kind: KindBoolean, Optional: true, Default: "false",
			},
			"characterizations":    {Predicate: PredRiskCharacterizations, Kind: KindIRI, Multi: true, Optional: true},
			"origins":              {Predicate: PredRiskOrigins, Kind: KindIRI, Multi: true, Optional: true},
			"remediations":         {Predicate: PredRiskRemediations, Kind: KindIRI, Multi: true, Optional: true},
			"related_observations": {Predicate: PredRelatedObservations, Kind: KindIRI, Multi: true, Optional: true},
			"labels":               {Predicate: PredRelLabels, Kind: KindIRI, Multi: true, Optional: true},
			"notes":                {Predicate: PredRelNotes, Kind: KindIRI, Multi: true, Optional: true},
			"markings":             {Predicate: PredRelMarkings, Kind: KindIRI, Multi: true, Optional: true},

			// Raw scoring facets, materialized onto the row via expansions.
			// Intermediate only: fetched for derived fields, never projected.
			"cvss2_base_score":     {Predicate: PredCVSS2Base, Kind: KindNumber, Multi: true, Optional: true},
			"cvss2_temporal_score": {Predicate: PredCVSS2Temporal, Kind: KindNumber, Multi: true, Optional: true},
			"cvss3_base_score":     {Predicate: PredCVSS3Base, Kind: KindNumber, Multi: true, Optional: true},
			"cvss3_temporal_score": {Predicate: PredCVSS3Temporal, Kind: KindNumber, Multi: true, Optional: true},
			"remediation_response_type": {
				Predicate: PredResponseType, Kind: KindString, Multi: true, Optional: true,
			},
			"remediation_lifecycle": {
				Predicate: PredLifecycle, Kind: KindString, Multi: true, Optional: true,
			},
			"remediation_timestamp": {
				Predicate: PredModified, Kind: KindDateTime, Multi: true, Optional: true,
			},
			"subject_context": {
				Predicate: "observation.subject.context", Kind: KindString, Multi: true, Optional: true,
			},
		}),
		NaturalKeys: []string{"name"},
		ParentScopes: map[EntityType]string{
			TypePOAMItem: PredRelatedRisks,
		},
		SortAliases: map[string]string{
			FieldRiskLevel: FieldRiskScore,
		},
		Owned: map[string]EntityType{
			"characterizations": TypeCharacterization,
			"origins":           TypeOrigin,
			"remediations":      TypeRemediation,
		},
		Referenced: map[string]EntityType{
			"related_observations": TypeObservation,
			"labels":               TypeLabel,
			"notes":                TypeNote,
			"markings":             TypeMarking,
		},
		Enums: map[string][]string{
			"risk_status": {
				"open", "investigating", "remediating",
				"deviation_requested", "deviation_approved", "closed",
			},
		},
		Derived: map[string][]string{
			FieldRiskLevel: {
				"cvss2_base_score", "cvss2_temporal_score",
				"cvss3_base_score", "cvss3_temporal_score",
			},
			FieldRiskScore: {
				"cvss2_base_score", "cvss2_temporal_score",
				"cvss3_base_score", "cvss3_temporal_score",
			},
			FieldResponseType: {
				"remediation_response_type", "remediation_lifecycle", "remediation_timestamp",
			},
			FieldLifecycle: {
				"remediation_response_type", "remediation_lifecycle", "remediation_timestamp",
			},
			FieldOccurrences: {"subject_context"},
		},
		Expansions: map[string]Expansion{
			"cvss2_base_score":          {Via: PredRiskCharacterizations, Source: PredCVSS2Base},
			"cvss2_temporal_score":      {Via: PredRiskCharacterizations, Source: PredCVSS2Temporal},
			"cvss3_base_score":          {Via: PredRiskCharacterizations, Source: PredCVSS3Base},
			"cvss3_temporal_score":      {Via: PredRiskCharacterizations, Source: PredCVSS3Temporal},
			"remediation_response_type": {Via: PredRiskRemediations, Source: PredResponseType},
			"remediation_lifecycle":     {Via: PredRiskRemediations, Source: PredLifecycle},
			"remediation_timestamp":     {Via: PredRiskRemediations, Source: PredModified},
			"subject_context":           {Via: PredRelatedObservations, Source: "observation.subject.context"},
		},
	}
}

func observationDescriptor() *EntityDescriptor {
	return &EntityDescriptor{
		Type:         TypeObservation,
		ClassMarkers: []string{"core.class.observation"},
		Bindings: withCore(map[string]FieldBinding{
			"name":              {Predicate: "observation.info.name", Kind: KindString},
			"description":       {Predicate: "observation.info.description", Kind: KindString, Optional: true},
			"methods":           {Predicate: "observation.info.methods", Kind: KindString, Multi: true, Optional: true},
			"observation_types": {Predicate: "observation.info.types", Kind: KindString, Multi: true, Optional: true},
			"collected":         {Predicate: "observation.time.collected", Kind: KindDateTime},
			"expires":           {Predicate: "observation.time.expires", Kind: KindDateTime, Optional: true},
			"subject_context":   {Predicate: "observation.subject.context", Kind: KindString, Optional: true},
			"labels":            {Predicate: PredRelLabels, Kind: KindIRI, Multi: true, Optional: true},
			"notes":             {Predicate: PredRelNotes, Kind: KindIRI, Multi: true, Optional: true},
			"markings":          {Predicate: PredRelMarkings, Kind: KindIRI, Multi: true, Optional: true},
		}),
		NaturalKeys: []string{"name", "collected"},
		ParentScopes: map[EntityType]string{
			TypeRisk:     PredRelatedObservations,
			TypePOAMItem: PredPOAMObservations,
		},
		Referenced: map[string]EntityType{
			"labels":   TypeLabel,
			"notes":    TypeNote,
			"markings": TypeMarking,
		},
	}
}

func characterizationDescriptor() *EntityDescriptor {
	return &EntityDescriptor{
		Type:         TypeCharacterization,
		ClassMarkers: []string{"core.class.characterization"},
		Bindings: withCore(map[string]FieldBinding{
			"name":                 {Predicate: "characterization.info.name", Kind: KindString},
			"cvss2_base_score":     {Predicate: PredCVSS2Base, Kind: KindNumber, Optional: true},
			"cvss2_temporal_score": {Predicate: PredCVSS2Temporal, Kind: KindNumber, Optional: true},
			"cvss3_base_score":     {Predicate: PredCVSS3Base, Kind: KindNumber, Optional: true},
			"cvss3_temporal_score": {Predicate: PredCVSS3Temporal, Kind: KindNumber, Optional: true},
		}),
		NaturalKeys: []string{"name"},
	}
}

func originDescriptor() *EntityDescriptor {
	return &EntityDescriptor{
		Type:         TypeOrigin,
		ClassMarkers: []string{"core.class.origin"},
		Bindings: withCore(map[string]FieldBinding{
			"actor_type": {Predicate: "origin.actor.type", Kind: KindString},
			"actor_ref":  {Predicate: "origin.actor.ref", Kind: KindString},
		}),
		NaturalKeys: []string{"actor_type", "actor_ref"},
		Enums: map[string][]string{
			"actor_type": {"tool", "assessment_platform", "party"},
		},
	}
}

func remediationDescriptor() *EntityDescriptor {
	return &EntityDescriptor{
		Type:         TypeRemediation,
		ClassMarkers: []string{"core.class.remediation"},
		Bindings: withCore(map[string]FieldBinding{
			FieldResponseType: {Predicate: PredResponseType, Kind: KindString},
			FieldLifecycle:    {Predicate: PredLifecycle, Kind: KindString},
		}),
		NaturalKeys: []string{FieldResponseType, FieldLifecycle},
		Enums: map[string][]string{
			FieldResponseType: {"avoid", "mitigate", "transfer", "accept", "share", "contingency", "none"},
			FieldLifecycle:    {"recommendation", "planned", "completed"},
		},
	}
}

func noteDescriptor() *EntityDescriptor {
	return &EntityDescriptor{
		Type:         TypeNote,
		ClassMarkers: []string{"core.class.note"},
		Bindings: withCore(map[string]FieldBinding{
			"abstract": {Predicate: "note.content.abstract", Kind: KindString, Optional: true},
			"content":  {Predicate: "note.content.body", Kind: KindString},
			"authors":  {Predicate: "note.content.authors", Kind: KindString, Multi: true, Optional: true},
		}),
		NaturalKeys: []string{"content"},
	}
}

func labelDescriptor() *EntityDescriptor {
	return &EntityDescriptor{
		Type:         TypeLabel,
		ClassMarkers: []string{"core.class.label"},
		Bindings: withCore(map[string]FieldBinding{
			"name":        {Predicate: "label.info.name", Kind: KindString},
			"description": {Predicate: "label.info.description", Kind: KindString, Optional: true},
			"color":       {Predicate: "label.info.color", Kind: KindString, Optional: true},
		}),
		NaturalKeys: []string{"name"},
	}
}

func markingDescriptor() *EntityDescriptor {
	return &EntityDescriptor{
		Type:         TypeMarking,
		ClassMarkers: []string{"core.class.marking"},
		Bindings: withCore(map[string]FieldBinding{
			"name":            {Predicate: "marking.info.name", Kind: KindString},
			"definition_type": {Predicate: "marking.info.definition_type", Kind: KindString},
			"color":           {Predicate: "marking.info.color", Kind: KindString, Optional: true},
			"statement":       {Predicate: "marking.info.statement", Kind: KindString, Optional: true},
		}),
		NaturalKeys: []string{"name", "definition_type"},
		Enums: map[string][]string{
			"definition_type": {"statement", "tlp"},
		},
	}
}

func poamItemDescriptor() *EntityDescriptor {
	return &EntityDescriptor{
		Type:         TypePOAMItem,
		ClassMarkers: []string{"core.class.poam-item"},
		Bindings: withCore(map[string]FieldBinding{
			"name":        {Predicate: "poam.info.name", Kind: KindString},
			"description": {Predicate: "poam.info.description", Kind: KindString, Optional: true},
			"poam_id":     {Predicate: "poam.info.poam_id", Kind: KindString},
			"accepted_risk": {
				Predicate: "poam.flag.accepted_risk", Kind: KindBoolean, Optional: true, Default: "false",
			},
			"related_risks":        {Predicate: PredRelatedRisks, Kind: KindIRI, Multi: true, Optional: true},
			"related_observations": {Predicate: PredPOAMObservations, Kind: KindIRI, Multi: true, Optional: true},
			"labels":               {Predicate: PredRelLabels, Kind: KindIRI, Multi: true, Optional: true},
			"notes":                {Predicate: PredRelNotes, Kind: KindIRI, Multi: true, Optional: true},
			"markings":             {Predicate: PredRelMarkings, Kind: KindIRI, Multi: true, Optional: true},
		}),
		NaturalKeys: []string{"poam_id"},
		Referenced: map[string]EntityType{
			"related_risks":        TypeRisk,
			"related_observations": TypeObservation,
			"labels":               TypeLabel,
			"notes":                TypeNote,
			"markings":             TypeMarking,
		},
	}
}
