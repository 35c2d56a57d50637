package model

import "strconv"

// Specialization is a provider specialization as understood by the remote API.
type Specialization struct {
	Code        string `json:"code"`
	DisplayName string `json:"displayName"`
}

var Specializations = []Specialization{
	{"ONCOLOGY", "Oncology"},
	{"HEMATOLOGY", "Hematology"},
	{"GASTROENTEROLOGY", "Gastroenterology"},
	{"ORTHOPEDIC_SURGERY", "Orthopedic Surgery"},
	{"PSYCHIATRY", "Psychiatry"},
	{"PHYSICIAN_ASSISTANT", "Physician Assistant"},
	{"RADIOLOGY", "Radiology"},
	{"PEDIATRICS", "Pediatrics"},
	{"PLASTIC_SURGERY", "Plastic Surgery"},
	{"ANESTHESIOLOGY", "Anesthesiology"},
	{"NURSE_PRACTITIONER", "Nurse Practitioner"},
	{"GENERAL_SURGERY", "General Surgery"},
	{"OBSTETRICS_GYNECOLOGY", "Obstetrics & Gynecology"},
	{"NEPHROLOGY", "Nephrology"},
	{"PHYSICAL_MEDICINE", "Physical Medicine"},
	{"OTOLARYNGOLOGY", "Otolaryngology"},
	{"RHEUMATOLOGY", "Rheumatology"},
	{"CARDIOLOGY", "Cardiology"},
	{"NEUROLOGY", "Neurology"},
	{"DERMATOLOGY", "Dermatology"},
	{"INFECTIOUS_DISEASE", "Infectious Disease"},
	{"NEUROSURGERY", "Neurosurgery"},
	{"INTERNAL_MEDICINE", "Internal Medicine"},
	{"OPHTHALMOLOGY", "Ophthalmology"},
	{"PATHOLOGY", "Pathology"},
	{"ALLERGY_IMMUNOLOGY", "Allergy & Immunology"},
	{"UROLOGY", "Urology"},
	{"EMERGENCY_MEDICINE", "Emergency Medicine"},
	{"OTHER", "Other"},
	{"FAMILY_MEDICINE", "Family Medicine"},
	{"PULMONOLOGY", "Pulmonology"},
}

// SpecializationDisplayName falls back to the code itself for unknown values.
func SpecializationDisplayName(code string) string {
	for _, s := range Specializations {
		if s.Code == code {
			return s.DisplayName
		}
	}
	return code
}

func IsSpecialization(code string) bool {
	for _, s := range Specializations {
		if s.Code == code {
			return true
		}
	}
	return false
}

var (
	Genders       = []string{"Male", "Female", "Other", "Prefer not to say"}
	Relationships = []string{"Spouse", "Parent", "Child", "Sibling", "Friend", "Other"}
)

func IsGender(v string) bool {
	return contains(Genders, v)
}

func IsRelationship(v string) bool {
	return contains(Relationships, v)
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}

func itoa(i int) string {
	return strconv.Itoa(i)
}
