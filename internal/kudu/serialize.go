package kudu

import "github.com/tidwall/gjson"

var (
	fileInfoFields   = []string{"name", "size", "mtime", "mime", "href", "path"}
	deploymentFields = []string{"id", "status", "message", "author", "deployer", "author_email", "start_time", "end_time", "active", "details"}
	processFields    = []string{"id", "name", "description", "href", "file_name", "command_line", "user_name", "working_directory", "environment_variables"}
)

// pick copies the named fields of a JSON object. Absent fields map to nil.
func pick(obj gjson.Result, fields []string) map[string]any {
	out := make(map[string]any, len(fields))
	for _, f := range fields {
		out[f] = obj.Get(f).Value()
	}
	return out
}

// pickEach applies pick to every element of a JSON array.
func pickEach(body []byte, fields []string) []map[string]any {
	items := gjson.ParseBytes(body).Array()
	out := make([]map[string]any, 0, len(items))
	for _, item := range items {
		out = append(out, pick(item, fields))
	}
	return out
}

func gjsonParse(body []byte) gjson.Result {
	return gjson.ParseBytes(body)
}
