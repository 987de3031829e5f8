package weather

// Flatten collapses nested objects and arrays into a single-level map whose keys
// are the underscore-joined paths of the leaves. Array elements are flattened
// under their parent key, so when several elements carry the same path the last
// one wins.
func Flatten(in map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(in))
	flattenInto(out, "", in)
	return out
}

func flattenInto(out map[string]interface{}, prefix string, v interface{}) {
	switch val := v.(type) {
	case map[string]interface{}:
		for k, child := range val {
			flattenInto(out, joinKey(prefix, k), child)
		}
	case []interface{}:
		for _, child := range val {
			flattenInto(out, prefix, child)
		}
	default:
		if prefix != "" {
			out[prefix] = val
		}
	}
}

func joinKey(prefix, key string) string {
	if prefix == "" {
		return key
	}
	return prefix + "_" + key
}

// cityRenames lines the forecast "city" block up with the current-weather layout.
var cityRenames = map[string]string{
	"sys_name":      "name",
	"sys_coord_lat": "coord_lat",
	"sys_coord_lon": "coord_lon",
	"sys_timezone":  "timezone",
}

// flattenForecastLocation moves the forecast city object under "sys", drops the
// sample list and flattens the remainder.
func flattenForecastLocation(raw map[string]interface{}) map[string]interface{} {
	doc := make(map[string]interface{}, len(raw))
	for k, v := range raw {
		if k == "list" || k == "city" {
			continue
		}
		doc[k] = v
	}
	if city, ok := raw["city"]; ok {
		doc["sys"] = city
	}

	flat := Flatten(doc)
	for from, to := range cityRenames {
		if v, ok := flat[from]; ok {
			flat[to] = v
			delete(flat, from)
		}
	}
	return flat
}

// samples returns the flattened entries of the forecast "list" array.
func samples(raw map[string]interface{}) []map[string]interface{} {
	list, _ := raw["list"].([]interface{})
	out := make([]map[string]interface{}, 0, len(list))
	for _, item := range list {
		entry, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		out = append(out, Flatten(entry))
	}
	return out
}
