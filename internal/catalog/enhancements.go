package catalog

// MergeEnhancements overlays enhancement records onto the base tree keyed by item identifier.
// Matching items have all four enhancement fields overwritten; other items are copied as-is.
// The returned tree shares no category or item slices with baseData.
func MergeEnhancements(baseData Data, enhancements map[string]Enhancement) Data {
	merged := baseData
	merged.Categories = make([]Category, len(baseData.Categories))

	for categoryIndex, category := range baseData.Categories {
		mergedCategory := category
		mergedCategory.Items = make([]Item, len(category.Items))

		for itemIndex, item := range category.Items {
			mergedItem := item.Clone()
			if enhancement, exists := enhancements[item.ID]; exists {
				mergedItem = applyEnhancement(mergedItem, enhancement)
			}
			mergedCategory.Items[itemIndex] = mergedItem
		}

		merged.Categories[categoryIndex] = mergedCategory
	}

	return merged
}

func applyEnhancement(item Item, enhancement Enhancement) Item {
	continuousMonitoring := enhancement.ContinuousMonitoring

	item.EvidenceRequirements = cloneRequirements(enhancement.EvidenceRequirements)
	item.SuccessMetrics = cloneStrings(enhancement.SuccessMetrics)
	item.ContinuousMonitoring = &continuousMonitoring
	item.ControlReferences = cloneStrings(enhancement.ControlReferences)

	return item
}
