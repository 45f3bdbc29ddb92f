// Package palette generates soft object colors and contrasting backgrounds.
//
// Colors are sampled from named hue-range profiles tuned for moderate
// saturation and high value, then paired with a complementary background.
// Generation is intentionally randomized per call with no seed exposed on
// the default constructor; tests use NewSeeded for fixtures.
package palette
