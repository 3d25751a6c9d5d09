package retrieval

import "context"

// SeedFacts is the starter knowledge set used when the index is empty.
func SeedFacts() []Fact {
	return []Fact{
		{
			ID:    "sky-blue",
			Topic: "physics",
			Text:  "The sky appears blue because of Rayleigh scattering. Shorter wavelengths of light (blue) scatter more than longer wavelengths (red) when sunlight passes through Earth's atmosphere.",
		},
		{
			ID:    "photosynthesis",
			Topic: "biology",
			Text:  "Photosynthesis is the process by which plants use sunlight, water, and carbon dioxide to create oxygen and energy in the form of sugar.",
		},
		{
			ID:    "gravity",
			Topic: "physics",
			Text:  "Gravity is a force that attracts objects with mass toward each other. The more massive an object, the stronger its gravitational pull.",
		},
		{
			ID:    "water-cycle",
			Topic: "earth-science",
			Text:  "The water cycle describes how water evaporates from the surface, rises into the atmosphere, cools and condenses into clouds, and falls back to the surface as precipitation.",
		},
		{
			ID:    "dinosaurs",
			Topic: "paleontology",
			Text:  "Dinosaurs were reptiles that lived millions of years ago during the Mesozoic Era. They went extinct about 65 million years ago, possibly due to an asteroid impact.",
		},
	}
}

// SeedIfEmpty indexes the starter facts when the collection has none.
func SeedIfEmpty(ctx context.Context, s *ChromemSearcher) error {
	if s.Count() > 0 {
		return nil
	}
	return s.AddFacts(ctx, SeedFacts())
}
