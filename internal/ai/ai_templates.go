package ai

const ideasPrompt = `
You are a senior crypto SEO strategist and market analyst.
Analyze the past 24 hours of crypto activity and identify the 3-4 strongest narratives based on:
- Social momentum (X viral threads, trending tokens)
- Whale movements & on-chain anomalies
- Volume spikes & volatility events
- Governance votes, protocol upgrades
- Hacks/exploits/security alerts
- Regulatory developments
- Funding rounds / ecosystem partnerships
For each narrative, extract 2 low-competition long-tail keyword angles with high search potential.

Requirements:
- 10 total titles, numbered 1-10 (plain text, no markdown bulleting).
- Each title <= 14 words, highlight action or insight.
- Include a specific hook (data point, timeframe, region, protocol, or narrative).
- Mix tones: analytical, experimental, regulatory, community-focused.
`

const optimizeTitlePrompt = `
You are an expert copywriter and SEO specialist. Your task is to take a blog post title and make it more compelling, engaging, and SEO-friendly.
Keep the core topic the same, but improve the wording to attract more readers.
Do not add quotes or any extra explanatory text around your response. Only return the improved title as a single line of plain text.
Make sure the optimized title is not too long.
Original Title: %q

Optimized Title:
`

// Args: topic, tone, audience, length.
const articlePrompt = `
You are an expert financial writer specializing in cryptocurrency and blockchain technology for a blog called "Crypto Briefs".

Your task is to write a blog post about the following topic: %q.

Please adhere to the following parameters for the article:
- Tone: %s
- Target Audience: %s
- Length: %s

The post should be well-structured and formatted in Markdown.
Use markdown for structure, including headings (e.g., '## Subheading'), bulleted lists (e.g., '- List item'), and bold text (e.g., '**bold**').
Do not include a main title (H1, or '# Title') in the output, as the title is published separately.
Make sure it is compatible with the ReactMarkdown library.
Start directly with the main content of the article and do not wrap it in quotes.
`

const coverImagePrompt = `
Generate a cover image for a medium.com article titled: %s, with tone: %s.
Do not render any text in the image.
`
