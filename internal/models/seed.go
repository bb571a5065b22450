package models

import "github.com/shopspring/decimal"

func amount(s string) decimal.Decimal { return decimal.RequireFromString(s) }

// SampleProjects returns the starter catalogue with its baseline raised
// amounts. Callers receive fresh copies and may mutate them.
func SampleProjects() []Project {
	return []Project{
		{
			Title:               "Maasai Mara Elephant Protection Initiative",
			Description:         "Supporting local communities in protecting elephant corridors and reducing human-wildlife conflict through sustainable tourism partnerships.",
			ShortDescription:    "Protecting elephant corridors and reducing human-wildlife conflict",
			Pillar:              PillarConservation,
			Location:            "Maasai Mara",
			Country:             "Kenya",
			GoalAmount:          amount("45000"),
			CurrentAmount:       amount("33300"),
			PartnerOrganisation: "Wildlife Works",
			PartnerLogo:         "https://images.unsplash.com/photo-1607462109225-6b64ae2dd3cb?w=32&h=32&fit=crop&crop=face",
			ProjectImage:        "https://images.unsplash.com/photo-1561731216-c3a4d99437d5?w=800&h=600&fit=crop",
			Rating:              amount("4.8"),
			IsActive:            true,
		},
		{
			Title:               "Kilimanjaro Rural Schools Initiative",
			Description:         "Building classrooms, training teachers, and providing learning materials to remote schools in the Kilimanjaro region.",
			ShortDescription:    "Building classrooms and training teachers in rural Tanzania",
			Pillar:              PillarEducation,
			Location:            "Kilimanjaro",
			Country:             "Tanzania",
			GoalAmount:          amount("28500"),
			CurrentAmount:       amount("26220"),
			PartnerOrganisation: "Teach for Tanzania",
			PartnerLogo:         "https://images.unsplash.com/photo-1599566150163-29194dcaad36?w=32&h=32&fit=crop&crop=face",
			ProjectImage:        "https://images.unsplash.com/photo-1544717297-fa95b6ee9643?w=800&h=600&fit=crop",
			Rating:              amount("4.9"),
			IsActive:            true,
		},
		{
			Title:               "Mobile Health Clinics Programme",
			Description:         "Bringing essential healthcare services to remote communities through mobile clinics and telemedicine initiatives.",
			ShortDescription:    "Mobile healthcare services for remote communities",
			Pillar:              PillarHealth,
			Location:            "Eastern Cape",
			Country:             "South Africa",
			GoalAmount:          amount("52000"),
			CurrentAmount:       amount("30160"),
			PartnerOrganisation: "Health Connect",
			PartnerLogo:         "https://images.unsplash.com/photo-1612349317150-e413f6a5b16d?w=32&h=32&fit=crop&crop=face",
			ProjectImage:        "https://images.unsplash.com/photo-1559757148-5c350d0d3c56?w=800&h=600&fit=crop",
			Rating:              amount("4.7"),
			IsActive:            true,
		},
		{
			Title:               "Serengeti Wildlife Conservation",
			Description:         "Protecting the Serengeti ecosystem through anti-poaching efforts and community engagement programmes.",
			ShortDescription:    "Anti-poaching and community engagement in the Serengeti",
			Pillar:              PillarConservation,
			Location:            "Serengeti",
			Country:             "Tanzania",
			GoalAmount:          amount("75000"),
			CurrentAmount:       amount("45000"),
			PartnerOrganisation: "Serengeti Trust",
			PartnerLogo:         "https://images.unsplash.com/photo-1607462109225-6b64ae2dd3cb?w=32&h=32&fit=crop&crop=face",
			ProjectImage:        "https://images.unsplash.com/photo-1551969014-7d2c4cddf0b6?w=800&h=600&fit=crop",
			Rating:              amount("4.6"),
			IsActive:            true,
		},
		{
			Title:               "Malawi Water Wells Project",
			Description:         "Providing clean water access to rural communities through sustainable well construction and maintenance programmes.",
			ShortDescription:    "Clean water access through sustainable well construction",
			Pillar:              PillarHealth,
			Location:            "Lilongwe",
			Country:             "Malawi",
			GoalAmount:          amount("35000"),
			CurrentAmount:       amount("21000"),
			PartnerOrganisation: "Water for Life",
			PartnerLogo:         "https://images.unsplash.com/photo-1612349317150-e413f6a5b16d?w=32&h=32&fit=crop&crop=face",
			ProjectImage:        "https://images.unsplash.com/photo-1582750433449-648ed127bb54?w=800&h=600&fit=crop",
			Rating:              amount("4.8"),
			IsActive:            true,
		},
		{
			Title:               "Ghana Digital Learning Centre",
			Description:         "Establishing computer labs and digital literacy programmes in rural Ghanaian schools.",
			ShortDescription:    "Computer labs and digital literacy in rural schools",
			Pillar:              PillarEducation,
			Location:            "Kumasi",
			Country:             "Ghana",
			GoalAmount:          amount("42000"),
			CurrentAmount:       amount("31500"),
			PartnerOrganisation: "Digital Ghana",
			PartnerLogo:         "https://images.unsplash.com/photo-1599566150163-29194dcaad36?w=32&h=32&fit=crop&crop=face",
			ProjectImage:        "https://images.unsplash.com/photo-1497486751825-1233686d5d80?w=800&h=600&fit=crop",
			Rating:              amount("4.7"),
			IsActive:            true,
		},
		{
			Title:               "Uganda Girls' Education Programme",
			Description:         "Empowering young women through education, mentorship, and vocational training in rural Ugandan communities.",
			ShortDescription:    "Empowering young women through education and mentorship",
			Pillar:              PillarEducation,
			Location:            "Gulu District",
			Country:             "Uganda",
			GoalAmount:          amount("22000"),
			CurrentAmount:       decimal.Zero,
			PartnerOrganisation: "Educate Girls Uganda",
			PartnerLogo:         "https://images.unsplash.com/photo-1599566150163-29194dcaad36?w=32&h=32&fit=crop&crop=face",
			ProjectImage:        "https://images.unsplash.com/photo-1509062522246-3755977927d7?w=800&h=600&fit=crop",
			Rating:              DefaultRating,
			IsActive:            true,
		},
	}
}
