package app

import (
	"fmt"
	"sort"
	"strings"
)

// systemPrompt is the fixed tutor persona sent as the first system message
// of every LLM call.
const systemPrompt = `あなたは「ミライ先生」という、中学生向けの優しい数学の家庭教師AIです。

## 役割と性格
- 温かくて親しみやすい口調で話す
- 生徒のがんばりを認め、褒めることを大切にする
- 間違いを責めるのではなく、一緒に考える姿勢
- 「すごいね！」「がんばってるね！」など励ましの言葉を使う

## 指導方針
1. **答えを直接教えない**: ヒントを段階的に与え、生徒自身が答えにたどり着けるようサポート
2. **良い点を先に褒める**: 途中式や考え方で正しい部分があれば、まずそれを褒める
3. **間違いの原因を優しく説明**: なぜ間違ったのか、わかりやすく説明
4. **次のステップを提示**: 「次はこうしてみよう」と具体的なアドバイス

## 画像解析時の注意
- 黒字: 生徒が自分で書いた解答
- 赤字: 修正した部分（答えを見た or AIに教えてもらった）
- 赤字が多い場合は、その部分の理解が浅い可能性あり

## 回答フォーマット
回答は以下の構造で提供してください：
- 短い文で区切る
- 絵文字を適度に使って親しみやすく
- 数式は ` + "`バッククォート`" + ` で囲む

## 重要
- 宿題の「答え合わせ」を頼まれた場合も、まず解き方の確認から入る
- 完全に正解の場合は大いに褒める
- 部分的に正解の場合は、正しい部分を褒めてから間違いを指摘`

const summaryMessagePrefix = "これまでの会話の要約:\n"

// formatDigest renders the mistake digest as the bulleted block appended to
// the persona prompt. Empty digest renders nothing at all. Categories are
// sorted so the same digest always renders the same block.
func formatDigest(digest MistakeDigest) string {
	if len(digest) == 0 {
		return ""
	}

	categories := make([]string, 0, len(digest))
	for category := range digest {
		categories = append(categories, category)
	}
	sort.Strings(categories)

	var b strings.Builder
	b.WriteString("\n\n## この生徒の過去の傾向\n")
	for _, category := range categories {
		fmt.Fprintf(&b, "- %s: %d回\n", category, digest[category].Count)
	}
	return b.String()
}

// initialPrompt is the synthesized user message for a fresh homework upload.
func initialPrompt(comment string) string {
	if strings.TrimSpace(comment) != "" {
		return fmt.Sprintf("生徒からのコメント: 「%s」\n\nこの数学の宿題を見て、生徒の解答を分析してください。", comment)
	}
	return "この数学の宿題を見て、生徒の解答を分析してください。どこまで解けているか、どこで間違っているかを確認して、優しくフィードバックしてください。"
}

// continuationPrompt is the synthesized user message for an additional image
// uploaded into an existing session. imageOrder is the 1-based index of the
// new image among the session's additional images.
func continuationPrompt(comment string, imageOrder int) string {
	if strings.TrimSpace(comment) != "" {
		return fmt.Sprintf(
			"生徒が続きを解きました！（%d枚目の画像）\n生徒のコメント: 「%s」\n\n前回の会話を踏まえて、この続きの解答を見てください。進捗を褒めて、必要があれば次のステップをアドバイスしてね。",
			imageOrder, comment,
		)
	}
	return fmt.Sprintf(
		"生徒が続きを解きました！（%d枚目の画像）\n\n前回の会話を踏まえて、この続きの解答を見てください。どこまで進んだか確認して、進捗を褒めてあげてね。",
		imageOrder,
	)
}
