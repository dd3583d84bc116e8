package showcase

import "github.com/teranos/cuesheet"

// Layer describes one stage of the classifier forward pass.
type Layer struct {
	Name        string
	Size        int
	Channels    int
	Description string
}

// Layers is the food classifier walked through by cuesheet.InferenceCueSheet.
var Layers = []Layer{
	{Name: "Input", Size: 224, Channels: 3, Description: "Raw RGB image 224×224×3"},
	{Name: "Conv1", Size: 112, Channels: 32, Description: "Edge detection & basic patterns"},
	{Name: "Conv2", Size: 56, Channels: 64, Description: "Texture & shape features"},
	{Name: "Conv3", Size: 28, Channels: 128, Description: "Object parts & components"},
	{Name: "Conv4", Size: 14, Channels: 256, Description: "High-level semantic features"},
	{Name: "Pooling", Size: 7, Channels: 512, Description: "Spatial compression"},
	{Name: "Dense", Size: 1, Channels: 1280, Description: "Feature vector"},
	{Name: "Output", Size: 1, Channels: 101, Description: "Class probabilities"},
}

// Prediction is one class score revealed once the run completes.
type Prediction struct {
	Label      string
	Confidence float64
}

// Predictions are sorted by confidence, best first.
var Predictions = []Prediction{
	{Label: "Pizza", Confidence: 94.7},
	{Label: "Bruschetta", Confidence: 2.1},
	{Label: "Garlic Bread", Confidence: 1.4},
	{Label: "Lasagna", Confidence: 0.9},
	{Label: "Cheese Plate", Confidence: 0.5},
}

const maxGridCells = 16

// Cells is the number of activation cells drawn for the layer.
func (l Layer) Cells() int {
	switch {
	case l.Channels <= 0:
		return 1
	case l.Channels > maxGridCells:
		return maxGridCells
	default:
		return l.Channels
	}
}

// layersFor pairs every cue of sheet with its layer. Cues the classifier
// does not know keep their own name and description.
func layersFor(sheet cuesheet.CueSheet) []Layer {
	known := make(map[string]Layer, len(Layers))
	for _, l := range Layers {
		known[l.Name] = l
	}

	out := make([]Layer, sheet.Len())
	for i, cue := range sheet.Cues {
		l, ok := known[cue.Name]
		if !ok {
			l = Layer{Name: cue.Name}
		}
		if cue.Description != "" {
			l.Description = cue.Description
		}
		out[i] = l
	}
	return out
}
