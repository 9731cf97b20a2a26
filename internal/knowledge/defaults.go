package knowledge

func weight(kg float64) *float64 { return &kg }

// DefaultEntries returns the built-in packaging knowledge used when no graph file is configured.
func DefaultEntries() map[string]Entry {
	return map[string]Entry{
		// Beverages
		"water bottle": {Category: "PET", Stream: "Recyclable", Recyclability: "High", Note: "Rinse & flatten.", WeightKg: weight(0.025)},
		"soda":         {Category: "PET", Stream: "Recyclable", Recyclability: "High", Note: "Rinse & flatten.", WeightKg: weight(0.03)},
		"juice":        {Category: "MLP", Stream: "Dry", Recyclability: "Low", Note: "Cut open, rinse, dispose as dry waste.", WeightKg: weight(0.03)},
		"milk":         {Category: "MLP", Stream: "Dry", Recyclability: "Low", Note: "Rinse carton, dispose as dry waste.", WeightKg: weight(0.03)},
		"beer":         {Category: "Glass", Stream: "Recyclable", Recyclability: "High", Note: "Rinse, remove cap.", WeightKg: weight(0.2)},
		"wine":         {Category: "Glass", Stream: "Recyclable", Recyclability: "High", Note: "Rinse, remove cork.", WeightKg: weight(0.5)},
		"can":          {Category: "Metal", Stream: "Recyclable", Recyclability: "High", Note: "Rinse & crush.", WeightKg: weight(0.015)},

		// Packaging
		"chips":       {Category: "MLP", Stream: "Dry", Recyclability: "Low", Note: "Dispose as dry waste.", WeightKg: weight(0.005)},
		"cereal":      {Category: "Paper", Stream: "Recyclable", Recyclability: "High", Note: "Flatten the box, remove the liner.", WeightKg: weight(0.05)},
		"pizza box":   {Category: "Paper", Stream: "Dry", Recyclability: "Low", Note: "Greasy cardboard goes to dry waste.", WeightKg: weight(0.15)},
		"newspaper":   {Category: "Paper", Stream: "Recyclable", Recyclability: "High", Note: "Keep dry, bundle.", WeightKg: weight(0.2)},
		"glass jar":   {Category: "Glass", Stream: "Recyclable", Recyclability: "High", Note: "Rinse, remove lid.", WeightKg: weight(0.25)},
		"foil":        {Category: "Metal", Stream: "Recyclable", Recyclability: "Moderate", Note: "Clean and ball up.", WeightKg: weight(0.01)},
		"yogurt":      {Category: "PET", Stream: "Recyclable", Recyclability: "Moderate", Note: "Rinse cup.", WeightKg: weight(0.01)},
		"paper bag":   {Category: "Paper", Stream: "Recyclable", Recyclability: "High", Note: "Fold flat.", WeightKg: weight(0.05)},
		"plastic bag": {Category: "Other", Stream: "Dry", Recyclability: "Low", Note: "Bundle bags together.", WeightKg: weight(0.005)},

		// Organics
		"banana":  {Category: "Compost", Stream: "Wet", Recyclability: "None", Note: "Dispose as wet compost.", WeightKg: weight(0.04)},
		"apple":   {Category: "Compost", Stream: "Wet", Recyclability: "None", Note: "Dispose as wet compost.", WeightKg: weight(0.03)},
		"coffee":  {Category: "Compost", Stream: "Wet", Recyclability: "None", Note: "Grounds go to wet compost.", WeightKg: weight(0.02)},
		"tea":     {Category: "Compost", Stream: "Wet", Recyclability: "None", Note: "Dispose as wet compost."},
		"bread":   {Category: "Compost", Stream: "Wet", Recyclability: "None", Note: "Dispose as wet compost.", WeightKg: weight(0.05)},
		"egg":     {Category: "Compost", Stream: "Wet", Recyclability: "None", Note: "Shells go to wet compost.", WeightKg: weight(0.06)},
		"lettuce": {Category: "Compost", Stream: "Wet", Recyclability: "None", Note: "Dispose as wet compost.", WeightKg: weight(0.02)},
	}
}

// Default returns the built-in graph.
func Default() *Graph {
	return NewGraph(DefaultEntries())
}
