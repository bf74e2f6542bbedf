// Package category defines the closed set of image categories and the
// per-category storage and optimization defaults.
package category

import "fmt"

// Category identifies which surface of the platform an image belongs to.
// The set is closed: adding a category means adding a constant here and a
// row in the configs table below.
type Category string

const (
	Restaurants Category = "restaurants"
	MenuItems   Category = "menuItems"
	Offers      Category = "offers"
	Categories  Category = "categories"
	General     Category = "general"
)

// Profile is the default re-encode target for a category. The dimensions
// bound storage cost and normalize aspect ratios per UI surface.
type Profile struct {
	Width   int
	Height  int
	Quality int
}

// Config is the immutable per-category record: the default bucket the
// category maps to and the default optimization profile.
type Config struct {
	Bucket  string
	Profile Profile
}

var configs = map[Category]Config{
	Restaurants: {Bucket: "restaurant-images", Profile: Profile{Width: 800, Height: 400, Quality: 85}},
	MenuItems:   {Bucket: "menu-item-images", Profile: Profile{Width: 400, Height: 300, Quality: 85}},
	Offers:      {Bucket: "offer-images", Profile: Profile{Width: 600, Height: 300, Quality: 85}},
	Categories:  {Bucket: "category-images", Profile: Profile{Width: 500, Height: 400, Quality: 85}},
	General:     {Bucket: "general-images", Profile: Profile{Width: 500, Height: 400, Quality: 85}},
}

// Parse validates a raw category string. Unknown values are a caller error,
// never a panic. An empty string falls back to General.
func Parse(s string) (Category, error) {
	if s == "" {
		return General, nil
	}
	c := Category(s)
	if _, ok := configs[c]; !ok {
		return "", fmt.Errorf("unknown category %q", s)
	}
	return c, nil
}

// All returns every category, for startup bucket provisioning.
func All() []Category {
	return []Category{Restaurants, MenuItems, Offers, Categories, General}
}

// DefaultBucket returns the built-in bucket name for the category.
// Deployments can override it via config.
func (c Category) DefaultBucket() string {
	return configs[c].Bucket
}

// DefaultProfile returns the optimization profile applied when the caller
// does not override it.
func (c Category) DefaultProfile() Profile {
	return configs[c].Profile
}

func (c Category) String() string {
	return string(c)
}
