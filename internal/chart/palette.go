package chart

// DefaultCenters is the usual comparison order.
var DefaultCenters = []string{"GMAO", "NRL", "MET", "MeteoFr", "JMA_adj", "JMA_ens", "EMC"}

var centerColors = map[string]string{
	"GMAO":    "#b23136",
	"NRL":     "#dd684c",
	"MET":     "#e3e3ce",
	"MeteoFr": "#878d92",
	"JMA_adj": "#3eafa8",
	"JMA_ens": "#15695d",
	"EMC":     "#e1f2f2",
}

// ExtraColor is used for centers without an assigned colour.
const ExtraColor = "#e7a53e"

// CenterName returns the display name of a center code.
func CenterName(center string) string {
	switch center {
	case "MET":
		return "Met Office"
	case "MeteoFr":
		return "Meteo France"
	case "JMA_adj":
		return "JMA (Adjoint)"
	case "JMA_ens":
		return "JMA (Ensemble)"
	default:
		return center
	}
}

// ComparePalette returns one colour per center, so a center keeps its colour
// across charts.
func ComparePalette(centers []string) []string {
	out := make([]string, len(centers))
	for i, c := range centers {
		if color, ok := centerColors[c]; ok {
			out[i] = color
			continue
		}
		out[i] = ExtraColor
	}
	return out
}
