package palette

import "image/color"

func rgb(r, g, b uint8) color.NRGBA {
	return color.NRGBA{R: r, G: g, B: b, A: 255}
}

var defaultColors = map[byte]color.NRGBA{
	1:  rgb(200, 200, 200), // stone
	2:  rgb(80, 140, 50),   // grass
	3:  rgb(150, 100, 50),  // dirt
	4:  rgb(175, 175, 175), // cobblestone
	5:  rgb(192, 150, 96),  // planks
	6:  rgb(70, 180, 40),   // sapling
	8:  rgb(0, 0, 200),     // water
	9:  rgb(0, 0, 200),
	10: rgb(255, 150, 0), // lava
	11: rgb(255, 150, 0),
	12: rgb(255, 255, 200), // sand
	13: rgb(170, 150, 170), // gravel
	14: rgb(255, 255, 96),  // ores
	15: rgb(200, 180, 150),
	16: rgb(80, 80, 80),
	17: rgb(192, 150, 96), // wood
	18: rgb(0, 75, 0),     // leaves
	24: rgb(255, 255, 200),
	26: rgb(140, 25, 25), // bed
	31: rgb(60, 120, 60),
	32: rgb(60, 120, 60),
	35: rgb(255, 255, 255), // wool
	37: rgb(255, 255, 50),
	38: rgb(255, 0, 0),
	39: rgb(200, 150, 120),
	40: rgb(180, 50, 50),
	44: rgb(200, 200, 200),
	48: rgb(115, 127, 115),
	49: rgb(20, 20, 30), // obsidian
	50: rgb(255, 255, 50),
	51: rgb(255, 150, 0),
	52: rgb(60, 90, 180),
	53: rgb(192, 150, 96),
	54: rgb(192, 150, 96),
	58: rgb(192, 150, 96),
	61: rgb(200, 200, 200),
	63: rgb(192, 150, 96),
	65: rgb(192, 150, 96),
	67: rgb(175, 175, 175),
	78: rgb(255, 255, 255), // snow
	79: rgb(128, 192, 255), // ice
	81: rgb(10, 100, 25),   // cactus
	82: rgb(222, 222, 255),
	83: rgb(150, 250, 150),
	85: rgb(192, 150, 96),
	86: rgb(255, 144, 0), // pumpkin
	91: rgb(255, 144, 0),
}

var defaultPalette = New(defaultColors)

// Default returns the built-in table.
func Default() *Palette {
	return defaultPalette
}
