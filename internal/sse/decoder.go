package sse

import "strings"

// Frame 线上协议的一条 (event, data) 帧，消费后即丢弃
type Frame struct {
	Event string
	Data  string
}

// Decode 对 SSE 字节流做增量解析。buffer 是到目前为止尚未产出完整帧的
// 全部文本（调用方负责把上次返回的 remainder 拼接到新到达的块前面）。
//
// 解析规则：`event: ` 行开启新帧（若已有未闭合帧则先弹出）；`data: ` 行
// 附着到当前帧；空行闭合并产出当前帧；无法识别的行按协议噪声忽略。
//
// 末尾处理策略：未以换行结束的最后一行、以及尚未等到空行的未闭合帧，都
// 原样放回 remainder，留待下一块继续解析——任何数据都不会被静默丢弃，
// 分块解析与一次性解析产出完全相同的帧序列。流真正结束时用 DecodeFinal。
func Decode(buffer string) (frames []Frame, remainder string) {
	return decode(buffer, false)
}

// DecodeFinal 在底层流报告输入结束时使用：补齐未终结的最后一行，并把
// 仍然开启的帧直接弹出（不再等待空行）。
func DecodeFinal(buffer string) []Frame {
	frames, _ := decode(buffer, true)
	return frames
}

func decode(buffer string, final bool) ([]Frame, string) {
	var frames []Frame
	var open *Frame
	var openRaw []string

	lines := strings.Split(buffer, "\n")
	partial := lines[len(lines)-1]
	lines = lines[:len(lines)-1]
	if final && partial != "" {
		lines = append(lines, partial)
		partial = ""
	}

	for _, raw := range lines {
		line := strings.TrimSuffix(raw, "\r")
		switch {
		case strings.HasPrefix(line, "event: "):
			if open != nil {
				frames = append(frames, *open)
			}
			open = &Frame{Event: strings.TrimPrefix(line, "event: ")}
			openRaw = openRaw[:0]
			openRaw = append(openRaw, raw)
		case strings.HasPrefix(line, "data: "):
			if open != nil {
				open.Data = strings.TrimPrefix(line, "data: ")
				openRaw = append(openRaw, raw)
			}
		case line == "":
			if open != nil {
				frames = append(frames, *open)
				open = nil
				openRaw = openRaw[:0]
			}
		default:
			// 协议噪声（注释行、id/retry 字段等），忽略
		}
	}

	if open != nil {
		if final {
			frames = append(frames, *open)
			return frames, ""
		}
		remainder := strings.Join(openRaw, "\n") + "\n" + partial
		return frames, remainder
	}

	return frames, partial
}
