package generator

import (
	"fmt"
	"strings"

	"github.com/AndrewDonelson/campaign-studio/internal/models"
)

// CoreScenePrompt describes the scene shared by all three ratios in
// separate mode
func CoreScenePrompt(product models.Product, brief *models.Brief, lang models.Language) string {
	return strings.Join([]string{
		fmt.Sprintf("Professional product photography of %s (%s).", product.Name, product.TypeOrDefault()),
		fmt.Sprintf("Setting: %s environment suitable for %s.", brief.TargetRegion, brief.TargetAudience),
		fmt.Sprintf("Brand message: %s.", brief.CampaignMessage),
		fmt.Sprintf("Language context: %s", lang.Name),
		"",
		"Core scene: Product prominently featured with premium lighting and styling.",
		"Color palette: Bright, energetic, modern.",
		"Style: High-end commercial photography, clean and engaging.",
		"Mood: Aspirational and authentic.",
		"",
		"The SAME core composition and lighting setup, but optimized framing for different aspect ratios.",
	}, "\n")
}

var compositions = map[string]string{
	models.RatioSquare: "Composed for square format (1:1). Center the product prominently.\n" +
		"Frame tightly for social media feed engagement.\n" +
		"Leave clear space at bottom 20% for text overlay.",
	models.RatioStory: "Composed for vertical story format (9:16). Full-height composition.\n" +
		"Show more vertical context around the same core scene.\n" +
		"Leave clear space at bottom 15% for text overlay.",
	models.RatioLandscape: "Composed for landscape format (16:9). Wide cinematic framing.\n" +
		"Show more horizontal context of the same core scene.\n" +
		"Leave clear space at bottom 15% for text overlay.",
}

// AspectPrompt appends the ratio specific composition to the core scene
func AspectPrompt(core, ratio string) string {
	composition, ok := compositions[ratio]
	if !ok {
		composition = compositions[models.RatioSquare]
	}
	return core + "\n" + composition
}

// BasePrompt is the square prompt of outpaint mode. The composition keeps
// the edges free so the image extends cleanly.
func BasePrompt(product models.Product, brief *models.Brief) string {
	return fmt.Sprintf(`Professional product photography of %s (%s) for social media campaign.

COMPOSITION FOR SQUARE FORMAT (will be extended for other ratios):
- Product prominently centered in scene
- Clean, balanced composition with breathing room on all sides
- Background elements arranged symmetrically
- Avoid important details near edges (will be extended)

SETTING & STYLE:
- Location: %s environment
- Target audience: %s
- Campaign message: %s
- Professional commercial photography
- High-end lighting and styling
- Modern, aspirational mood

TECHNICAL REQUIREMENTS:
- Square composition (1:1 ratio)
- Central focus with extendable background
- Consistent lighting across frame
- Premium visual quality
- Leave 20%% margin at bottom for text overlay

Background should be photographically realistic and easily extendable in both horizontal and vertical directions.`,
		product.Name, product.TypeOrDefault(), brief.TargetRegion, brief.TargetAudience, brief.CampaignMessage)
}

// LandscapePrompt extends the base prompt for the 16:9 outpainting pass
func LandscapePrompt(base string) string {
	return base + `

LANDSCAPE EXTENSION (16:9):
- Extend the existing square image horizontally to create a 16:9 landscape
- Maintain the exact same central composition, lighting, and product positioning
- Add complementary background elements on left and right sides
- Keep the same color palette and style as the original square image
- The central area should be identical to the square version`
}

// VerticalPrompt extends the base prompt for the 9:16 outpainting pass
func VerticalPrompt(base string) string {
	return base + `

VERTICAL EXTENSION (9:16):
- Extend the existing square image vertically to create a 9:16 portrait
- Maintain the exact same central composition, lighting, and product positioning
- Add complementary background elements above and below
- Keep the same color palette and style as the original square image
- The central area should be identical to the square version
- Perfect for mobile/story format`
}

// ReferenceBackgroundPrompt is used to extend an uploaded reference image
func ReferenceBackgroundPrompt(productName string) string {
	return fmt.Sprintf("Professional background for %s product campaign", productName)
}
