package scheduler

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// cronSpec 是一个解析好的 5 字段 cron 表达式。
// 每个字段是一个 64 位集合, 位 v 置 1 表示该字段匹配值 v。
type cronSpec struct {
	minute fieldSet
	hour   fieldSet
	dom    fieldSet
	month  fieldSet
	dow    fieldSet
}

type fieldSet uint64

func (f fieldSet) has(v int) bool { return f&(1<<uint(v)) != 0 }
func (f *fieldSet) add(v int)     { *f |= 1 << uint(v) }

// parseCron 解析 "分 时 日 月 周" 形式的表达式。
// 字段支持 *、单值、区间 (a-b)、步长 (*/n、a-b/n) 和逗号列表。
// 单值带步长 (v/n) 按惯例视为 v 到字段上界的区间; 周字段接受 7 作为
// 周日的别名。
func parseCron(expr string) (*cronSpec, error) {
	fields := strings.Fields(strings.TrimSpace(expr))
	if len(fields) != 5 {
		return nil, fmt.Errorf("cron 表达式需要 5 个字段, 实际 %d 个: %q", len(fields), expr)
	}

	spec := &cronSpec{}
	for i, bind := range []struct {
		dst    *fieldSet
		lo, hi int
		name   string
	}{
		{&spec.minute, 0, 59, "分钟"},
		{&spec.hour, 0, 23, "小时"},
		{&spec.dom, 1, 31, "日"},
		{&spec.month, 1, 12, "月"},
		{&spec.dow, 0, 7, "周"},
	} {
		set, err := parseCronField(fields[i], bind.lo, bind.hi)
		if err != nil {
			return nil, fmt.Errorf("%s字段: %w", bind.name, err)
		}
		*bind.dst = set
	}
	// 7 折叠到 0, Next 只按 time.Weekday (0-6) 检查。
	if spec.dow.has(7) {
		spec.dow.add(0)
		spec.dow &^= 1 << 7
	}
	return spec, nil
}

// Next 返回严格晚于 after 的下一次触发时间。日和周两个字段都受限时
// 要求同时满足。有效表达式在 4 年内必有解, 搜索超限返回零值。
func (c *cronSpec) Next(after time.Time) time.Time {
	t := after.Truncate(time.Minute).Add(time.Minute)
	limit := t.AddDate(4, 0, 0)

	for t.Before(limit) {
		if !c.month.has(int(t.Month())) {
			t = time.Date(t.Year(), t.Month()+1, 1, 0, 0, 0, 0, t.Location())
			continue
		}
		if !c.dom.has(t.Day()) || !c.dow.has(int(t.Weekday())) {
			t = time.Date(t.Year(), t.Month(), t.Day()+1, 0, 0, 0, 0, t.Location())
			continue
		}
		if !c.hour.has(t.Hour()) {
			t = time.Date(t.Year(), t.Month(), t.Day(), t.Hour()+1, 0, 0, 0, t.Location())
			continue
		}
		if !c.minute.has(t.Minute()) {
			t = t.Add(time.Minute)
			continue
		}
		return t
	}
	return time.Time{}
}

func parseCronField(field string, lo, hi int) (fieldSet, error) {
	var set fieldSet
	for _, part := range strings.Split(field, ",") {
		sub, err := parseCronPart(part, lo, hi)
		if err != nil {
			return 0, err
		}
		set |= sub
	}
	if set == 0 {
		return 0, fmt.Errorf("字段 %q 为空集", field)
	}
	return set, nil
}

func parseCronPart(part string, lo, hi int) (fieldSet, error) {
	var set fieldSet

	rangeExpr := part
	step := 1
	if idx := strings.IndexByte(part, '/'); idx != -1 {
		n, err := strconv.Atoi(part[idx+1:])
		if err != nil || n <= 0 {
			return 0, fmt.Errorf("步长非法: %q", part)
		}
		step = n
		rangeExpr = part[:idx]
	}

	var from, to int
	switch {
	case rangeExpr == "*":
		from, to = lo, hi
	case strings.Contains(rangeExpr, "-"):
		bounds := strings.SplitN(rangeExpr, "-", 2)
		a, err1 := strconv.Atoi(bounds[0])
		b, err2 := strconv.Atoi(bounds[1])
		if err1 != nil || err2 != nil {
			return 0, fmt.Errorf("区间非法: %q", part)
		}
		from, to = a, b
	default:
		v, err := strconv.Atoi(rangeExpr)
		if err != nil {
			return 0, fmt.Errorf("数值非法: %q", part)
		}
		if step > 1 {
			from, to = v, hi
		} else {
			if v < lo || v > hi {
				return 0, fmt.Errorf("数值 %d 超出 [%d, %d]", v, lo, hi)
			}
			set.add(v)
			return set, nil
		}
	}

	if from < lo || to > hi || from > to {
		return 0, fmt.Errorf("区间 %d-%d 超出 [%d, %d]", from, to, lo, hi)
	}
	for v := from; v <= to; v += step {
		set.add(v)
	}
	return set, nil
}
