package catalog

import "ecorewards/internal/models"

func DefaultProducts() []models.Product {
	return []models.Product{
		{Slug: "recycled-notebook", Name: "Recycled Notebook", Description: "Made from 100% recycled paper",
			Category: "Stationery", Points: 200, Image: "/images/download-1.jpeg", Featured: true, IsActive: true},
		{Slug: "bamboo-cutlery-set", Name: "Bamboo Cutlery Set", Description: "Sustainable alternative to plastic utensils",
			Category: "Kitchen", Points: 350, Image: "/images/download-2.jpeg", Featured: true, IsActive: true},
		{Slug: "solar-power-bank", Name: "Solar Power Bank", Description: "Charge your devices with solar energy",
			Category: "Electronics", Points: 1200, Image: "/images/download-3.jpeg", IsActive: true},
		{Slug: "eco-friendly-water-bottle", Name: "Eco-Friendly Water Bottle", Description: "Reusable stainless steel bottle",
			Category: "Kitchen", Points: 500, Image: "/images/download-4.jpeg", Featured: true, IsActive: true},
		{Slug: "recycled-tote-bag", Name: "Recycled Tote Bag", Description: "Made from recycled plastic bottles",
			Category: "Accessories", Points: 300, Image: "/images/download-5.jpeg", IsActive: true},
		{Slug: "led-desk-lamp", Name: "LED Desk Lamp", Description: "Energy-efficient lighting solution",
			Category: "Home", Points: 800, Image: "/images/download-6.jpeg", IsActive: true},
		{Slug: "bamboo-toothbrush", Name: "Bamboo Toothbrush", Description: "Biodegradable alternative to plastic",
			Category: "Personal Care", Points: 150, Image: "/images/download-7.jpeg", IsActive: true},
		{Slug: "recycled-plastic-plant-pot", Name: "Recycled Plastic Plant Pot", Description: "Made from recycled ocean plastic",
			Category: "Home", Points: 400, Image: "/images/download-8.jpeg", IsActive: true},
	}
}
