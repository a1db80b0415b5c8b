package tracker

import "github.com/temirov/ksi/internal/catalog"

// ReplaceItem returns a tree in which the item of categoryID sharing replacement's
// identifier is replaced. Unknown categories or items leave the tree unchanged. Categories
// other than the matched one keep their item slices.
func ReplaceItem(tree catalog.Data, categoryID string, replacement catalog.Item) catalog.Data {
	categoryIndex := indexOfCategory(tree.Categories, categoryID)
	if categoryIndex < 0 {
		return tree
	}

	items := tree.Categories[categoryIndex].Items
	itemIndex := indexOfItem(items, replacement.ID)
	if itemIndex < 0 {
		return tree
	}

	updatedItems := append([]catalog.Item(nil), items...)
	updatedItems[itemIndex] = replacement.Clone()

	updatedCategories := append([]catalog.Category(nil), tree.Categories...)
	updatedCategories[categoryIndex].Items = updatedItems

	updated := tree
	updated.Categories = updatedCategories
	return updated
}

func indexOfCategory(categories []catalog.Category, categoryID string) int {
	for index, category := range categories {
		if category.ID == categoryID {
			return index
		}
	}
	return -1
}

func indexOfItem(items []catalog.Item, itemID string) int {
	for index, item := range items {
		if item.ID == itemID {
			return index
		}
	}
	return -1
}
