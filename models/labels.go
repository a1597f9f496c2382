package models

// EnergyLabel is a canonical energy performance class.
type EnergyLabel string

const (
	EnergyA4 EnergyLabel = "A++++"
	EnergyA3 EnergyLabel = "A+++"
	EnergyA2 EnergyLabel = "A++"
	EnergyA1 EnergyLabel = "A+"
	EnergyA  EnergyLabel = "A"
	EnergyB  EnergyLabel = "B"
	EnergyC  EnergyLabel = "C"
	EnergyD  EnergyLabel = "D"
	EnergyE  EnergyLabel = "E"
	EnergyF  EnergyLabel = "F"
	EnergyG  EnergyLabel = "G"
)

// Ownership is the canonical land ownership situation.
type Ownership string

const (
	OwnershipFull               Ownership = "full_ownership"
	OwnershipLeasehold          Ownership = "leasehold"
	OwnershipLeaseholdBoughtOff Ownership = "leasehold_bought_off"
)

// KindOfHouse is the canonical dwelling category.
type KindOfHouse string

const (
	KindApartment    KindOfHouse = "apartment"
	KindSingleFamily KindOfHouse = "single_family"
	KindMansion      KindOfHouse = "mansion"
	KindVilla        KindOfHouse = "villa"
	KindBungalow     KindOfHouse = "bungalow"
	KindCountryHouse KindOfHouse = "country_house"
	KindFarmhouse    KindOfHouse = "farmhouse"
	KindHouseboat    KindOfHouse = "houseboat"
)

// BuildingType distinguishes existing stock from new construction.
type BuildingType string

const (
	BuildingResale   BuildingType = "resale"
	BuildingNewBuild BuildingType = "new_build"
)
