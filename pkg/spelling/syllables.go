/*
Package spelling holds the pinyin syllable table and splits raw keystrokes into syllable paths.

Syllables are identified by a small integer ID, the 1-based position of the syllable in the
sorted syllable table. IDs are stable for a given table and are what the dictionary uses as trie keys.
ü is written as v, the way keyboards type it.
*/
package spelling

import (
	"sort"
	"strings"
)

// ID identifies one syllable of the table. Zero is never a valid syllable.
type ID uint16

// MaxSyllableLen is the length of the longest syllable ("zhuang", "chuang", "shuang").
const MaxSyllableLen = 6

var syllableList = strings.Fields(`
a ai an ang ao
ba bai ban bang bao bei ben beng bi bian biao bie bin bing bo bu
ca cai can cang cao ce cen ceng cha chai chan chang chao che chen cheng chi chong chou
chu chua chuai chuan chuang chui chun chuo ci cong cou cu cuan cui cun cuo
da dai dan dang dao de dei den deng di dia dian diao die ding diu dong dou du duan dui dun duo
e ei en eng er
fa fan fang fei fen feng fo fou fu
ga gai gan gang gao ge gei gen geng gong gou gu gua guai guan guang gui gun guo
ha hai han hang hao he hei hen heng hong hou hu hua huai huan huang hui hun huo
ji jia jian jiang jiao jie jin jing jiong jiu ju juan jue jun
ka kai kan kang kao ke kei ken keng kong kou ku kua kuai kuan kuang kui kun kuo
la lai lan lang lao le lei leng li lia lian liang liao lie lin ling liu lo long lou lu
luan lue lun luo lv lve
ma mai man mang mao me mei men meng mi mian miao mie min ming miu mo mou mu
na nai nan nang nao ne nei nen neng ni nian niang niao nie nin ning niu nong nou nu
nuan nue nuo nv nve
o ou
pa pai pan pang pao pei pen peng pi pian piao pie pin ping po pou pu
qi qia qian qiang qiao qie qin qing qiong qiu qu quan que qun
ran rang rao re ren reng ri rong rou ru rua ruan rui run ruo
sa sai san sang sao se sen seng sha shai shan shang shao she shei shen sheng shi shou
shu shua shuai shuan shuang shui shun shuo si song sou su suan sui sun suo
ta tai tan tang tao te tei teng ti tian tiao tie ting tong tou tu tuan tui tun tuo
wa wai wan wang wei wen weng wo wu
xi xia xian xiang xiao xie xin xing xiong xiu xu xuan xue xun
ya yan yang yao ye yi yin ying yo yong you yu yuan yue yun
za zai zan zang zao ze zei zen zeng zha zhai zhan zhang zhao zhe zhei zhen zheng zhi
zhong zhou zhu zhua zhuai zhuan zhuang zhui zhun zhuo zi zong zou zu zuan zui zun zuo
`)

// initials ordered so that two-letter initials are tried first.
var initials = []string{"zh", "ch", "sh", "b", "p", "m", "f", "d", "t", "n", "l", "g", "k", "h",
	"j", "q", "x", "r", "z", "c", "s", "y", "w"}

var (
	syllableIDs map[string]ID
	byPrefix    map[string][]ID
	initialSet  map[string]bool
)

func init() {
	sort.Strings(syllableList)
	syllableIDs = make(map[string]ID, len(syllableList))
	byPrefix = make(map[string][]ID)
	for i, s := range syllableList {
		id := ID(i + 1)
		syllableIDs[s] = id
		for l := 1; l <= len(s); l++ {
			p := s[:l]
			byPrefix[p] = append(byPrefix[p], id)
		}
	}
	initialSet = make(map[string]bool, len(initials))
	for _, in := range initials {
		initialSet[in] = true
	}
}

// Count returns the number of syllables in the table.
func Count() int {
	return len(syllableList)
}

// Lookup returns the ID of a syllable, or false when s is not a syllable.
func Lookup(s string) (ID, bool) {
	id, ok := syllableIDs[s]
	return id, ok
}

// Valid reports whether id names a syllable of the table.
func (id ID) Valid() bool {
	return id > 0 && int(id) <= len(syllableList)
}

func (id ID) String() string {
	if !id.Valid() {
		return ""
	}
	return syllableList[id-1]
}

// Parse converts a spelling such as "pin'yin" or "pin yin" into syllable IDs.
// Unseparated spellings are split greedily.
func Parse(s string) ([]ID, bool) {
	var ids []ID
	for _, part := range strings.FieldsFunc(Fold(s), IsSeparatorOrSpace) {
		for len(part) > 0 {
			n := len(part)
			if n > MaxSyllableLen {
				n = MaxSyllableLen
			}
			found := false
			for ; n > 0; n-- {
				if id, ok := syllableIDs[part[:n]]; ok {
					ids = append(ids, id)
					part = part[n:]
					found = true
					break
				}
			}
			if !found {
				return nil, false
			}
		}
	}
	return ids, len(ids) > 0
}

// Join renders IDs as an apostrophe separated spelling.
func Join(ids []ID) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = id.String()
	}
	return strings.Join(parts, "'")
}

// splitInitial splits a syllable-like string into its initial and final.
// Zero-initial pieces return an empty initial.
func splitInitial(s string) (string, string) {
	for _, in := range initials {
		if strings.HasPrefix(s, in) {
			return in, s[len(in):]
		}
	}
	return "", s
}

// IsInitial reports whether s is an initial consonant on its own.
func IsInitial(s string) bool {
	return initialSet[s]
}

// WithPrefix returns every syllable that starts with p.
func WithPrefix(p string) []ID {
	return byPrefix[p]
}
