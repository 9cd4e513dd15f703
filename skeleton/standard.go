package skeleton

import "strings"

var centralStandardBones = []string{
	"全ての親", "センター", "グルーブ", "腰", "下半身", "上半身", "上半身2", "上半身3",
	"首", "頭", "両目",
}

var sideStandardBones = []string{
	"目",
	"肩P", "肩", "肩C", "腕", "腕捩", "ひじ", "手捩", "手首",
	"親指０", "親指１", "親指２", "人指１", "人指２", "人指３", "中指１", "中指２", "中指３",
	"薬指１", "薬指２", "薬指３", "小指１", "小指２", "小指３",
	"腰キャンセル", "足", "ひざ", "足首", "つま先", "足ＩＫ", "つま先ＩＫ", "足IK親",
	"足D", "ひざD", "足首D", "足先EX",
}

var (
	standardBones = map[string]bool{}
	twistBones    = map[string]string{}
)

func init() {
	for _, name := range centralStandardBones {
		standardBones[name] = true
	}
	for _, side := range []string{"左", "右"} {
		for _, name := range sideStandardBones {
			standardBones[side+name] = true
		}
		twistBones[side+"腕"] = side + "腕捩"
		twistBones[side+"ひじ"] = side + "手捩"
	}
}

// IsStandard reports whether name is an MMD semi-standard bone.
func IsStandard(name string) bool {
	return standardBones[name]
}

// TwistBoneName returns the twin twist bone of name, if it has one.
func TwistBoneName(name string) (string, bool) {
	t, ok := twistBones[name]
	return t, ok
}

// Side returns "左", "右" or "" from the bone name prefix.
func Side(name string) string {
	if strings.HasPrefix(name, "左") {
		return "左"
	}
	if strings.HasPrefix(name, "右") {
		return "右"
	}
	return ""
}
