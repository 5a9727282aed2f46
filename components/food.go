package components

// Food marks an entity as an active food item.
// EatenBy is the admission gate for the single-eater invariant: it is set
// through FoodSupply.BeginEating and never written anywhere else.
type Food struct {
	ID          uint32
	ArchetypeID uint8
	SurfaceID   uint8
	Height      float32 // surface top + drop height, for the presentation layer
	SpawnedAt   float32 // world clock at creation
	EatenBy     uint32  // pigeon id currently eating, 0 = none
}
