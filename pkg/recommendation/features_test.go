package recommendation

import "testing"

func intPtr(v int) *int          { return &v }
func floatPtr(v float64) *float64 { return &v }

func TestNutritionBucket(t *testing.T) {
	cases := []struct {
		name                          string
		ageMonths                     int
		protein, fat, calorie float64
	}{
		{"puppy", 6, 0.9, 0.8, 0.9},
		{"adult", 36, 0.7, 0.5, 0.6},
		{"senior", 96, 0.8, 0.6, 0.7},
		{"adult boundary at 12", 12, 0.7, 0.5, 0.6},
		{"adult boundary at 84", 84, 0.7, 0.5, 0.6},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			protein, fat, calorie := nutritionBucket(c.ageMonths)
			if protein != c.protein || fat != c.fat || calorie != c.calorie {
				t.Fatalf("nutritionBucket(%d) = (%v,%v,%v), want (%v,%v,%v)",
					c.ageMonths, protein, fat, calorie, c.protein, c.fat, c.calorie)
			}
		})
	}
}

func TestExtractPetFeatures(t *testing.T) {
	pet := PetProfile{
		Breed:            "Labrador",
		AgeMonths:        intPtr(24),
		WeightKg:         floatPtr(30),
		HealthConditions: []string{"joint_health", "skin_allergies"},
	}
	f := extractPetFeatures(pet)

	if got, want := f[0], 24.0/200.0; got != want {
		t.Errorf("f[0] = %v, want %v", got, want)
	}
	if got, want := f[1], 30.0/100.0; got != want {
		t.Errorf("f[1] = %v, want %v", got, want)
	}
	if f[1] != f[3] {
		t.Errorf("f[1] and f[3] should mirror, got %v and %v", f[1], f[3])
	}
	if f[2] != 1.0 {
		t.Errorf("f[2] = %v, want 1.0 for known breed", f[2])
	}
	for i, condition := range healthConditionOrder {
		want := 0.0
		if condition == "joint_health" || condition == "skin_allergies" {
			want = 1.0
		}
		if f[4+i] != want {
			t.Errorf("f[%d] (%s) = %v, want %v", 4+i, condition, f[4+i], want)
		}
	}
	if f[10] != 0 {
		t.Errorf("f[10] reserved slot should be 0, got %v", f[10])
	}
	if f[11] != 0.7 || f[12] != 0.5 || f[13] != 0.6 {
		t.Errorf("nutrition bucket mismatch: %v %v %v", f[11], f[12], f[13])
	}
	if f[14] != 0 {
		t.Errorf("f[14] should be 0 for pets, got %v", f[14])
	}
}

func TestExtractPetFeaturesUnknownBreedAndNilFields(t *testing.T) {
	pet := PetProfile{}
	f := extractPetFeatures(pet)
	if f[2] != 0.5 {
		t.Errorf("f[2] = %v, want 0.5 for unknown breed", f[2])
	}
	if f[0] != 0 || f[1] != 0 {
		t.Errorf("nil age/weight should produce 0, got f[0]=%v f[1]=%v", f[0], f[1])
	}
}

func TestExtractProductFeaturesAgeWeightRanges(t *testing.T) {
	t.Run("both bounds present uses midpoint", func(t *testing.T) {
		p := Product{MinAgeMonths: intPtr(10), MaxAgeMonths: intPtr(30), MinWeightKg: floatPtr(10), MaxWeightKg: floatPtr(20)}
		f := extractProductFeatures(p)
		if got, want := f[0], 20.0/200.0; got != want {
			t.Errorf("f[0] = %v, want %v", got, want)
		}
		if got, want := f[1], 15.0/100.0; got != want {
			t.Errorf("f[1] = %v, want %v", got, want)
		}
		if f[1] != f[3] {
			t.Errorf("f[1] and f[3] should mirror")
		}
	})

	t.Run("only min bound present", func(t *testing.T) {
		p := Product{MinAgeMonths: intPtr(10), MinWeightKg: floatPtr(10)}
		f := extractProductFeatures(p)
		if got, want := f[0], 10.0/200.0; got != want {
			t.Errorf("f[0] = %v, want %v", got, want)
		}
		if got, want := f[1], 10.0/100.0; got != want {
			t.Errorf("f[1] = %v, want %v", got, want)
		}
	})

	t.Run("only max bound present", func(t *testing.T) {
		p := Product{MaxAgeMonths: intPtr(40), MaxWeightKg: floatPtr(25)}
		f := extractProductFeatures(p)
		if got, want := f[0], 40.0/200.0; got != want {
			t.Errorf("f[0] = %v, want %v", got, want)
		}
		if got, want := f[3], 25.0/100.0; got != want {
			t.Errorf("f[3] = %v, want %v", got, want)
		}
	})

	t.Run("neither bound present defaults to 0.5", func(t *testing.T) {
		p := Product{}
		f := extractProductFeatures(p)
		if f[0] != 0.5 || f[1] != 0.5 || f[3] != 0.5 {
			t.Errorf("expected defaults of 0.5, got f[0]=%v f[1]=%v f[3]=%v", f[0], f[1], f[3])
		}
	})
}

func TestExtractProductFeaturesSuitableBreeds(t *testing.T) {
	withBreeds := extractProductFeatures(Product{SuitableBreeds: []string{"Labrador"}})
	if withBreeds[2] != 1.0 {
		t.Errorf("f[2] = %v, want 1.0", withBreeds[2])
	}
	without := extractProductFeatures(Product{})
	if without[2] != 0.5 {
		t.Errorf("f[2] = %v, want 0.5", without[2])
	}
}

func TestExtractProductFeaturesNutritionAndIngredients(t *testing.T) {
	p := Product{
		ProteinPercentage: floatPtr(30),
		FatPercentage:     floatPtr(15),
		CaloriesPer100g:   intPtr(375),
		GrainFree:         true,
		Organic:           true,
		Hypoallergenic:    true,
	}
	f := extractProductFeatures(p)
	if got, want := f[11], 0.30; got != want {
		t.Errorf("f[11] = %v, want %v", got, want)
	}
	if got, want := f[12], 0.15; got != want {
		t.Errorf("f[12] = %v, want %v", got, want)
	}
	if got, want := f[13], (375.0-250.0)/250.0; got != want {
		t.Errorf("f[13] = %v, want %v", got, want)
	}
	if got, want := f[14], 1.0; got != want {
		t.Errorf("f[14] = %v, want %v (0.3+0.3+0.4 capped at 1.0)", got, want)
	}
}

func TestExtractProductFeaturesCaloriesUncappedBelowFloor(t *testing.T) {
	f := extractProductFeatures(Product{CaloriesPer100g: intPtr(100)})
	want := (100.0 - calorieFloor) / calorieRange
	if f[13] != want {
		t.Errorf("f[13] = %v, want %v (only the upper bound is capped)", f[13], want)
	}
	if f[13] >= 0 {
		t.Errorf("f[13] = %v, want a negative value for calories well below the floor", f[13])
	}
}

func TestExtractProductFeaturesCaloriesCappedAbove250(t *testing.T) {
	f := extractProductFeatures(Product{CaloriesPer100g: intPtr(1000)})
	if f[13] != 1.0 {
		t.Errorf("f[13] = %v, want 1.0 (capped at the upper bound)", f[13])
	}
}

func TestExtractProductFeaturesHealthFlags(t *testing.T) {
	p := Product{
		ForSensitiveStomach: true,
		ForDentalHealth:     true,
	}
	f := extractProductFeatures(p)
	want := map[int]bool{4: true, 5: false, 6: false, 7: false, 8: true, 9: false}
	for i, expect := range want {
		got := f[i] == 1.0
		if got != expect {
			t.Errorf("f[%d] = %v, want %v", i, f[i], expect)
		}
	}
}
