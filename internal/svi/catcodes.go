package svi

// CategoryCode names the upstream's well-known category ids. The
// spec treats category as an opaque non-negative integer; these
// constants are sugar over that integer, carried over from the
// original project's category enum, and never change core semantics.
type CategoryCode int

const (
	CategoryNone                 CategoryCode = 0
	CategoryArtsEntertainment    CategoryCode = 3
	CategoryAutosVehicles        CategoryCode = 47
	CategoryBeautyFitness        CategoryCode = 44
	CategoryBooksLiterature      CategoryCode = 22
	CategoryBusinessIndustrial   CategoryCode = 12
	CategoryComputersElectronics CategoryCode = 5
	CategoryFinance              CategoryCode = 7
	CategoryFoodDrink            CategoryCode = 71
	CategoryGames                CategoryCode = 8
	CategoryHealth               CategoryCode = 45
	CategoryInternetTelecom      CategoryCode = 13
	CategoryJobsEducation        CategoryCode = 958
	CategoryLawGovernment        CategoryCode = 19
	CategoryNews                 CategoryCode = 16
	CategoryScience              CategoryCode = 174
	CategoryShopping             CategoryCode = 18
	CategorySports               CategoryCode = 20
	CategoryTravel               CategoryCode = 67
)

// Int returns the raw integer the upstream expects.
func (c CategoryCode) Int() int { return int(c) }
