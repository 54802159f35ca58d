// Package rating holds the time-segmented rating model: the dimension catalog,
// per-dimension segment partitions, and the DimensionData mapping that a rating
// widget owns for one recording.
//
// Every segment list is an ordered, gap-free partition of [0, duration]. The
// mutating operations on Segments keep that partition intact and treat
// out-of-range input as a no-op or a clamp rather than an error, because they
// are driven by freeform pointer interaction.
//
// Dimension descriptors arrive in several shapes (bare counts, decoded JSON or
// YAML maps, typed specs). NormalizeDimension is the single place that turns
// them into a canonical Dimension; nothing downstream inspects raw shapes.
package rating
